package dialogue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
)

// Phase is the dialogue state machine position for a session.
type Phase string

const (
	PhaseIntro          Phase = "intro"
	PhaseConsentRequest Phase = "consent_request"
	PhaseQuestion1      Phase = "question_1"
	PhaseQuestion2      Phase = "question_2"
	PhaseQuestion3      Phase = "question_3"
	PhaseCompletion     Phase = "completion"
	PhaseTerminated     Phase = "terminated"
)

// ConsentState tracks the single PENDING -> GRANTED|REFUSED transition.
type ConsentState string

const (
	ConsentPending ConsentState = "pending"
	ConsentGranted ConsentState = "granted"
	ConsentRefused ConsentState = "refused"
)

// QuestionState tracks progress on one survey question slot.
type QuestionState string

const (
	QuestionNotAsked QuestionState = "not_asked"
	QuestionAsked    QuestionState = "asked"
	QuestionAnswered QuestionState = "answered"
)

// Supported languages. Anything else normalizes to English.
const (
	LanguageEnglish = "en"
	LanguageItalian = "it"
)

const questionCount = 3

var errConsentResolved = errors.New("dialogue: consent already resolved")

// Question is one configured survey question for the session.
type Question struct {
	Text string
	Type string
}

// TranscriptEntry is one audit record of a prompt played or an utterance
// heard. Entries are append-only.
type TranscriptEntry struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SpeakerAgent = "agent"
	SpeakerUser  = "user"
)

// Answer is the captured result for one question.
type Answer struct {
	QuestionIndex int
	QuestionText  string
	AnswerText    string
	Confidence    float64
	Utterance     string
	WasRepeated   bool
	AnsweredAt    time.Time
}

// Session is the mutable state for one in-progress call. Identifiers and
// campaign material are immutable after creation; the orchestrator owning
// the current phase is the sole writer of the mutable fields.
type Session struct {
	SessionID   string
	CampaignID  string
	ContactID   string
	CallID      string
	Language    string
	IntroScript string
	Questions   [questionCount]Question

	Phase           Phase
	Consent         ConsentState
	RefusalReason   string
	UnclearAttempts int
	QuestionStates  map[int]QuestionState
	Answers         map[int]Answer
	RepeatCounts    map[int]int
	Transcript      []TranscriptEntry

	StartedAt          time.Time
	ConsentRequestedAt time.Time
	ConsentResolvedAt  time.Time
	CompletedAt        time.Time
	TerminatedAt       time.Time
}

// NewSession builds a session from a call.answered event. The event must
// carry exactly three questions.
func NewSession(evt events.CallAnsweredV1) (*Session, error) {
	if strings.TrimSpace(evt.CallID) == "" {
		return nil, errors.New("dialogue: call_id required")
	}
	if len(evt.Questions) != questionCount {
		return nil, fmt.Errorf("dialogue: expected %d questions, got %d", questionCount, len(evt.Questions))
	}

	s := &Session{
		SessionID:   uuid.NewString(),
		CampaignID:  evt.CampaignID,
		ContactID:   evt.ContactID,
		CallID:      evt.CallID,
		Language:    NormalizeLanguage(evt.Language),
		IntroScript: evt.IntroScript,
		Phase:       PhaseIntro,
		Consent:     ConsentPending,
		QuestionStates: map[int]QuestionState{
			1: QuestionNotAsked,
			2: QuestionNotAsked,
			3: QuestionNotAsked,
		},
		Answers:      make(map[int]Answer, questionCount),
		RepeatCounts: map[int]int{1: 0, 2: 0, 3: 0},
		StartedAt:    time.Now().UTC(),
	}
	for i, q := range evt.Questions {
		s.Questions[i] = Question{Text: q.Text, Type: q.Type}
	}
	return s, nil
}

// NormalizeLanguage maps a tag onto the closed supported set, defaulting
// to English.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case LanguageItalian:
		return LanguageItalian
	default:
		return LanguageEnglish
	}
}

// AppendUtterance records a transcript entry. Empty text is dropped.
func (s *Session) AppendUtterance(speaker, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// SetConsentGranted resolves consent to GRANTED. A second terminal write
// is rejected.
func (s *Session) SetConsentGranted() error {
	if s.Consent != ConsentPending {
		return errConsentResolved
	}
	s.Consent = ConsentGranted
	s.ConsentResolvedAt = time.Now().UTC()
	return nil
}

// SetConsentRefused resolves consent to REFUSED and terminates the phase.
func (s *Session) SetConsentRefused() error {
	if s.Consent != ConsentPending {
		return errConsentResolved
	}
	s.Consent = ConsentRefused
	now := time.Now().UTC()
	s.ConsentResolvedAt = now
	s.Phase = PhaseTerminated
	s.TerminatedAt = now
	return nil
}

// CurrentQuestion returns the 1-based question index for the current
// phase, or false when the session is not in a question phase.
func (s *Session) CurrentQuestion() (int, bool) {
	switch s.Phase {
	case PhaseQuestion1:
		return 1, true
	case PhaseQuestion2:
		return 2, true
	case PhaseQuestion3:
		return 3, true
	default:
		return 0, false
	}
}

// QuestionAt returns the configured question for a 1-based index.
func (s *Session) QuestionAt(index int) Question {
	if index < 1 || index > questionCount {
		return Question{}
	}
	return s.Questions[index-1]
}

// PhaseForQuestion maps a 1-based question index to its phase.
func PhaseForQuestion(index int) Phase {
	switch index {
	case 1:
		return PhaseQuestion1
	case 2:
		return PhaseQuestion2
	case 3:
		return PhaseQuestion3
	default:
		return PhaseCompletion
	}
}

// Terminal reports whether the session accepts no further utterances.
func (s *Session) Terminal() bool {
	return s.Phase == PhaseTerminated || s.Phase == PhaseCompletion
}

// AllAnswered reports whether every question slot has a recorded answer.
func (s *Session) AllAnswered() bool {
	for i := 1; i <= questionCount; i++ {
		if s.QuestionStates[i] != QuestionAnswered {
			return false
		}
	}
	return len(s.Answers) == questionCount
}

// SurveyAnswers flattens the captured answers in question order for the
// completion event payload.
func (s *Session) SurveyAnswers() []events.SurveyAnswer {
	out := make([]events.SurveyAnswer, 0, questionCount)
	for i := 1; i <= questionCount; i++ {
		ans, ok := s.Answers[i]
		if !ok {
			continue
		}
		out = append(out, events.SurveyAnswer{
			QuestionIndex: ans.QuestionIndex,
			QuestionText:  ans.QuestionText,
			AnswerText:    ans.AnswerText,
			Confidence:    ans.Confidence,
			WasRepeated:   ans.WasRepeated,
		})
	}
	return out
}
