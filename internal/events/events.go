// Package events publishes build lifecycle notifications as CloudEvents.
package events

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const (
	// TypeImageBuildSubmitted marks a build request accepted by the daemon.
	TypeImageBuildSubmitted = "com.cloudbees.build.image.submitted"

	eventSource     = "cloudbees-io/docker-build"
	eventPathEnvVar = "CLOUDBEES_EVENT_PATH"
)

// ImageBuildPayload is the event data attached to build notifications.
type ImageBuildPayload struct {
	Tags       []string `json:"tags,omitempty"`
	Dockerfile string   `json:"dockerfile,omitempty"`
	Remote     string   `json:"remote,omitempty"`
}

// NewImageBuildSubmitted constructs the submission event for one build.
func NewImageBuildSubmitted(payload ImageBuildPayload) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(eventSource)
	e.SetType(TypeImageBuildSubmitted)
	e.SetTime(time.Now().UTC())
	if err := e.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return e, fmt.Errorf("setting event data: %w", err)
	}
	return e, nil
}

// Publish appends the event, JSON-encoded one per line, to the file named by
// the CLOUDBEES_EVENT_PATH environment variable. It is a no-op when the
// variable is unset.
func Publish(e cloudevents.Event) error {
	path := os.Getenv(eventPathEnvVar)
	if path == "" {
		return nil
	}
	return Append(path, e)
}

// Append writes the event to path, one JSON document per line.
func Append(path string, e cloudevents.Event) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening event output: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(buf, '\n')); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}
