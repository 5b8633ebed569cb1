package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/quarrel-dev/upkeep/internal/models"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Digest posts a scheduled summary of open issues per business. It only
// reads the knowledge base; it never drives a session transition.
type Digest struct {
	db       *gorm.DB
	notifier Notifier
	schedule string
}

// NewDigest creates a Digest. The schedule is a 5-field cron expression.
func NewDigest(db *gorm.DB, notifier Notifier, schedule string) (*Digest, error) {
	if db == nil {
		return nil, fmt.Errorf("notify: digest: db is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notify: digest: notifier is required")
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("notify: digest: parse schedule %q: %w", schedule, err)
	}
	return &Digest{db: db, notifier: notifier, schedule: schedule}, nil
}

// Run fires the digest at each scheduled time until ctx is cancelled.
func (d *Digest) Run(ctx context.Context) {
	for {
		wait := d.nextFire()
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if err := d.fire(ctx); err != nil {
			log.Printf("notify: digest: %v", err)
		}
	}
}

// fire builds and sends one digest. Nothing is sent when there is no open
// work.
func (d *Digest) fire(ctx context.Context) error {
	body, total, err := BuildOpenIssuesReport(d.db)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	return d.notifier.Send(ctx, Notification{
		Subject: fmt.Sprintf("Open maintenance issues: %d", total),
		Body:    body,
	})
}

// nextFire returns the duration until the next scheduled time.
func (d *Digest) nextFire() time.Duration {
	sched, err := cronParser.Parse(d.schedule)
	if err != nil {
		// Validated in NewDigest; fall back to a daily cadence.
		return 24 * time.Hour
	}
	next := sched.Next(time.Now())
	wait := time.Until(next)
	if wait < 0 {
		return 0
	}
	return wait
}

// businessOpenCount is one digest line.
type businessOpenCount struct {
	Name  string
	Count int64
}

// BuildOpenIssuesReport summarizes unresolved issues grouped by business.
// Returns the formatted body and the total count.
func BuildOpenIssuesReport(db *gorm.DB) (string, int64, error) {
	var rows []businessOpenCount
	err := db.Model(&models.Issue{}).
		Select("businesses.name AS name, COUNT(issues.id) AS count").
		Joins("JOIN businesses ON businesses.id = issues.business_id").
		Where("issues.status <> ?", models.IssueResolved).
		Group("businesses.name").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return "", 0, fmt.Errorf("notify: open issues report: %w", err)
	}

	var total int64
	var b strings.Builder
	for _, row := range rows {
		total += row.Count
		fmt.Fprintf(&b, "%s: %d open\n", row.Name, row.Count)
	}
	return strings.TrimRight(b.String(), "\n"), total, nil
}
