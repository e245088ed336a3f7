package models

// UserAgent is sent with every outbound request made by the server.
const UserAgent = "hestia/1.0 (+https://github.com/UnknownOlympus/hestia)"

// Employee represents one row of the employee table.
type Employee struct {
	ID           string `json:"emp_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PrimarySkill string `json:"primary_skill"`
	Location     string `json:"location"`
}

// FullName joins the first and last name the way the confirmation page shows it.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}
