package events

import "time"

// Inbound event kinds produced by the telephony layer.
const (
	KindCallAnswered = "call.answered.v1"
	KindCallSpeech   = "call.speech.v1"
	KindCallEnded    = "call.ended.v1"
)

// Outbound event kinds consumed by the survey-response pipeline.
const (
	KindSurveyRefused   = "survey.refused.v1"
	KindSurveyCompleted = "survey.completed.v1"
)

// Refusal reasons carried on SurveyRefusedV1.
const (
	RefusalReasonExplicit   = "explicit_refusal"
	RefusalReasonMaxUnclear = "max_unclear_attempts"
)

// SurveyQuestion is one configured campaign question. Type is one of
// free_text, numeric, or scale and only influences phrasing hints.
type SurveyQuestion struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// CallAnsweredV1 signals that an outbound campaign call was answered and a
// dialogue session should start.
type CallAnsweredV1 struct {
	EventID     string           `json:"event_id"`
	CampaignID  string           `json:"campaign_id"`
	ContactID   string           `json:"contact_id"`
	CallID      string           `json:"call_id"`
	Language    string           `json:"language"`
	IntroScript string           `json:"intro_script"`
	Questions   []SurveyQuestion `json:"questions"`
	AnsweredAt  time.Time        `json:"answered_at"`
}

// CallSpeechV1 carries one transcribed user utterance. An empty Transcript
// means the telephony layer detected no speech.
type CallSpeechV1 struct {
	EventID    string    `json:"event_id"`
	CallID     string    `json:"call_id"`
	Transcript string    `json:"transcript"`
	ReceivedAt time.Time `json:"received_at"`
}

// CallEndedV1 signals the call ended outside the dialogue flow (hangup,
// carrier drop). The session is discarded without survey events.
type CallEndedV1 struct {
	EventID string    `json:"event_id"`
	CallID  string    `json:"call_id"`
	Reason  string    `json:"reason,omitempty"`
	EndedAt time.Time `json:"ended_at"`
}

// SurveyAnswer is one captured answer inside SurveyCompletedV1.
type SurveyAnswer struct {
	QuestionIndex int     `json:"question_index"`
	QuestionText  string  `json:"question_text"`
	AnswerText    string  `json:"answer_text"`
	Confidence    float64 `json:"confidence"`
	WasRepeated   bool    `json:"was_repeated"`
}

// SurveyRefusedV1 is published when the contact refuses consent, including
// the escalated silence/ambiguity path.
type SurveyRefusedV1 struct {
	EventID         string    `json:"event_id"`
	CampaignID      string    `json:"campaign_id"`
	ContactID       string    `json:"contact_id"`
	CallID          string    `json:"call_id"`
	Reason          string    `json:"reason"`
	UnclearAttempts int       `json:"unclear_attempts"`
	TranscriptRef   string    `json:"transcript_ref,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// SurveyCompletedV1 is published when all three questions are answered.
type SurveyCompletedV1 struct {
	EventID       string         `json:"event_id"`
	CampaignID    string         `json:"campaign_id"`
	ContactID     string         `json:"contact_id"`
	CallID        string         `json:"call_id"`
	Answers       []SurveyAnswer `json:"answers"`
	TranscriptRef string         `json:"transcript_ref,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
