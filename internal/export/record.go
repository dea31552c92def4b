package export

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a record identifier carried verbatim from the shell. The shell may
// send numbers or strings; both are kept as their textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// UserRecord is one user with the sessions recorded for them
type UserRecord struct {
	ID       ID              `json:"id"`
	FName    string          `json:"fname"`
	LName    string          `json:"lname"`
	Sessions []SessionRecord `json:"Session"`
}

// SessionRecord is a single login/logout pair
type SessionRecord struct {
	ID         ID     `json:"id"`
	LoginTime  string `json:"loginTime"`
	LogoutTime string `json:"logoutTime"`
}

// ExportRow is the flat join of a user with one of its sessions
type ExportRow struct {
	ID         ID     `json:"id"`
	FName      string `json:"fname"`
	LName      string `json:"lname"`
	SessionID  ID     `json:"sessionId"`
	LoginTime  string `json:"loginTime"`
	LogoutTime string `json:"logoutTime"`
}

// Flatten produces one row per (user, session) pair, users in input order
// and each user's sessions in input order. Users without sessions yield no
// rows.
func Flatten(users []UserRecord) []ExportRow {
	n := 0
	for _, u := range users {
		n += len(u.Sessions)
	}

	rows := make([]ExportRow, 0, n)
	for _, u := range users {
		for _, s := range u.Sessions {
			rows = append(rows, ExportRow{
				ID:         u.ID,
				FName:      u.FName,
				LName:      u.LName,
				SessionID:  s.ID,
				LoginTime:  s.LoginTime,
				LogoutTime: s.LogoutTime,
			})
		}
	}
	return rows
}

// ParseUsers decodes a JSON array of user records
func ParseUsers(data []byte) ([]UserRecord, error) {
	var users []UserRecord
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode user records: %w", err)
	}
	return users, nil
}
