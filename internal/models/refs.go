package models

import "encoding/json"

type PatientSummary struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
}

type AppointmentSummary struct {
	AppointmentID string `json:"appointment_id"`
	Type          string `json:"type"`
	Reason        string `json:"reason,omitempty"`
	Status        string `json:"status,omitempty"`
}

// PatientRef is the dual-shape patient reference carried on a queue
// entry: the backend may return either a bare patient id or an embedded
// summary. Both shapes decode through here, nowhere else.
type PatientRef struct {
	ID       string
	Name     string
	Phone    string
	embedded bool
}

func PatientID(id string) PatientRef {
	return PatientRef{ID: id}
}

func EmbeddedPatient(id, name, phone string) PatientRef {
	return PatientRef{ID: id, Name: name, Phone: phone, embedded: true}
}

func (r PatientRef) Embedded() bool {
	return r.embedded
}

func (r *PatientRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = PatientRef{ID: id}
		return nil
	}
	var payload PatientSummary
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*r = PatientRef{ID: payload.PatientID, Name: payload.Name, Phone: payload.Phone, embedded: true}
	return nil
}

func (r PatientRef) MarshalJSON() ([]byte, error) {
	if !r.embedded {
		return json.Marshal(r.ID)
	}
	return json.Marshal(PatientSummary{PatientID: r.ID, Name: r.Name, Phone: r.Phone})
}

// AppointmentRef mirrors PatientRef for the optional appointment
// reference on checked-in appointments.
type AppointmentRef struct {
	ID       string
	Type     string
	Reason   string
	Status   string
	embedded bool
}

func AppointmentID(id string) *AppointmentRef {
	return &AppointmentRef{ID: id}
}

func EmbeddedAppointment(id, visitType, reason, status string) *AppointmentRef {
	return &AppointmentRef{ID: id, Type: visitType, Reason: reason, Status: status, embedded: true}
}

func (r AppointmentRef) Embedded() bool {
	return r.embedded
}

func (r *AppointmentRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = AppointmentRef{ID: id}
		return nil
	}
	var payload AppointmentSummary
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*r = AppointmentRef{ID: payload.AppointmentID, Type: payload.Type, Reason: payload.Reason, Status: payload.Status, embedded: true}
	return nil
}

func (r AppointmentRef) MarshalJSON() ([]byte, error) {
	if !r.embedded {
		return json.Marshal(r.ID)
	}
	return json.Marshal(AppointmentSummary{AppointmentID: r.ID, Type: r.Type, Reason: r.Reason, Status: r.Status})
}
