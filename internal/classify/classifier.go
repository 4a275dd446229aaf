// Package classify defines the pluggable message classifier. Classification
// is advisory: intake stores suggestions on created tickets but never lets a
// classifier failure block ticket creation.
package classify

import "context"

// Suggestion is a classifier's advisory output for one message.
type Suggestion struct {
	SuggestedQueueName string         `json:"suggested_queue_name,omitempty"`
	SuggestedTags      []string       `json:"suggested_tags,omitempty"`
	SuggestedIssueType string         `json:"suggested_issue_type,omitempty"`
	Confidence         float64        `json:"confidence"`
	ModelID            string         `json:"model_id"`
	Raw                map[string]any `json:"raw,omitempty"`
}

// Classifier suggests queue/issue-type/tags for a message.
type Classifier interface {
	Classify(ctx context.Context, subject, body, tenantID string) (Suggestion, error)
}

// NoopClassifier always returns a zero-confidence suggestion.
type NoopClassifier struct{}

// NewNoop builds the no-op classifier.
func NewNoop() *NoopClassifier {
	return &NoopClassifier{}
}

// Classify implements Classifier.
func (c *NoopClassifier) Classify(_ context.Context, _, _, _ string) (Suggestion, error) {
	return Suggestion{Confidence: 0, ModelID: "none"}, nil
}
