package models

import "time"

// DiagnosticSession is one continuous triage conversation for a (user,
// business) pair. Sessions are never deleted; they only transition to a
// terminal status. Metadata is a JSON document merged additively by the
// orchestrator; writers must not drop keys written by a previous step.
type DiagnosticSession struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     uint   `gorm:"not null;index"`
	BusinessID uint   `gorm:"not null;index"`
	Status     string `gorm:"size:32;default:active;index"`
	Metadata   string `gorm:"type:json"`
	IssueID    *uint  // set at most once, never reassigned
	CreatedAt  time.Time
	UpdatedAt  time.Time

	User     User              `gorm:"foreignKey:UserID"`
	Business Business          `gorm:"foreignKey:BusinessID"`
	Issue    *Issue            `gorm:"foreignKey:IssueID"`
	Entries  []TranscriptEntry `gorm:"foreignKey:SessionID"`
}

// TranscriptEntry is a single message within a session. Creation order is
// load-bearing: the orchestrator reconstructs the combined user text by
// concatenating user-role entries in creation order.
type TranscriptEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID uint   `gorm:"not null;index"`
	Role      string `gorm:"size:16;not null"` // "user", "assistant", "system"
	Content   string `gorm:"type:mediumtext;not null"`
	Metadata  string `gorm:"type:json"`
	CreatedAt time.Time

	Session DiagnosticSession `gorm:"foreignKey:SessionID"`
}
