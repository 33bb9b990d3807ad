package task

import (
	"CloudHunter/internal/mq"
	"CloudHunter/model"
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidIncident marks a message that can never be stored.
var ErrInvalidIncident = errors.New("invalid incident message")

// IncidentMessage is the payload sent to the incident worker.
type IncidentMessage struct {
	Incident model.UploadIncident `json:"incident"`
	Attempt  int                  `json:"attempt"`
}

// Publisher is the part of mq.Client the reporter publishes through.
type Publisher interface {
	PublishIncident(ctx context.Context, body []byte) error
}

// Reporter queues upload incidents for the worker. It never fails the caller.
type Reporter struct {
	publisher func() (Publisher, error)
	timeout   time.Duration
}

func NewReporter(url string, timeout time.Duration) *Reporter {
	return &Reporter{
		timeout: timeout,
		publisher: func() (Publisher, error) {
			client, err := mq.GetPublisher(url)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

func (r *Reporter) Report(ctx context.Context, incident model.UploadIncident) {
	body, err := json.Marshal(IncidentMessage{Incident: incident})
	if err != nil {
		log.Printf("incident: encode %s: %v", incident.EventID, err)
		return
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	pub, err := r.publisher()
	if err != nil {
		log.Printf("incident: publisher unavailable, dropping %s %s at %s uid=%d file=%q: %v",
			incident.EventID, incident.Kind, incident.Stage, incident.UserID, incident.FileName, err)
		return
	}
	if err := pub.PublishIncident(ctx, body); err != nil {
		log.Printf("incident: publish %s: %v", incident.EventID, err)
		return
	}
	log.Printf("incident: queued %s %s at %s uid=%d", incident.EventID, incident.Kind, incident.Stage, incident.UserID)
}

// ProcessIncident stores the incident once per event id.
func ProcessIncident(ctx context.Context, db *gorm.DB, msg IncidentMessage) error {
	inc := msg.Incident
	if inc.EventID == "" || inc.Kind == "" {
		return ErrInvalidIncident
	}
	inc.ID = 0
	inc.Attempt = msg.Attempt
	if inc.OccurredAt.IsZero() {
		inc.OccurredAt = time.Now()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&inc).Error
}
