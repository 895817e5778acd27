package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxcampaign/voice-survey-platform/internal/observability/metrics"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

// maxRepeatsPerQuestion caps explicit repeats per question slot. A second
// repeat request on the same slot is handled as an unclear response.
const maxRepeatsPerQuestion = 1

const questionDeliveryPromptFmt = `You are a professional survey interviewer conducting a phone survey.
Your task is to deliver the given question in a natural, conversational way.

Language: %s
%s
%s

Guidelines:
- Be polite and professional
- Keep the delivery concise but natural
- Do not add extra questions or commentary
- Maintain the original meaning of the question
- If repeating, briefly acknowledge it before asking again

Output only the question delivery text, nothing else.`

const acknowledgmentPromptFmt = `You are a professional survey interviewer.
Generate a very brief acknowledgment (1 short sentence) after receiving an answer.
Language: %s

Guidelines:
- Be brief and natural
- Do not repeat the answer back
- Do not add commentary on the answer
- Just acknowledge receipt and prepare to move on

Output only the acknowledgment text.`

const completionPromptFmt = `You are a professional survey interviewer.
Generate a brief closing message to thank the participant for completing the survey.
Language: %s

Guidelines:
- Thank them for their time and participation
- Keep it brief (2-3 sentences max)
- Be warm but professional
- Say goodbye

Output only the closing message.`

var questionDeliveryTypeHints = map[string]string{
	"free_text": "This is an open-ended question. Encourage a detailed response.",
	"numeric":   "This question expects a number as an answer. Make that clear.",
	"scale":     "This question uses a scale (typically 1-10). Remind the user of the scale.",
}

// QuestionDelivery is the phrased text for one question. Producing it has
// no side effect on session state.
type QuestionDelivery struct {
	Index        int
	QuestionText string
	QuestionType string
	DeliveryText string
	IsRepeat     bool
}

// QAOrchestrator drives the three-question sequence after consent is
// granted, through to completion.
type QAOrchestrator struct {
	classifier *IntentClassifier
	llm        LLMClient
	model      string
	telephony  TelephonyControl
	logger     *logging.Logger
	metrics    *metrics.DialogueMetrics
}

func NewQAOrchestrator(classifier *IntentClassifier, llm LLMClient, model string, telephony TelephonyControl, logger *logging.Logger, m *metrics.DialogueMetrics) *QAOrchestrator {
	if classifier == nil {
		panic("dialogue: intent classifier cannot be nil")
	}
	if telephony == nil {
		panic("dialogue: telephony control cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QAOrchestrator{
		classifier: classifier,
		llm:        llm,
		model:      model,
		telephony:  telephony,
		logger:     logger,
		metrics:    m,
	}
}

// Start begins the Q&A flow. It is entered only from granted consent.
func (o *QAOrchestrator) Start(ctx context.Context, s *Session) error {
	if s.Consent != ConsentGranted {
		return fmt.Errorf("dialogue: qa flow requires granted consent, have %q", s.Consent)
	}
	if _, inQuestion := s.CurrentQuestion(); inQuestion || s.Terminal() {
		return fmt.Errorf("dialogue: qa flow already started (phase %q)", s.Phase)
	}

	s.Phase = PhaseQuestion1
	s.QuestionStates[1] = QuestionAsked
	o.logger.Info("qa flow started", "call_id", s.CallID)

	o.deliverQuestion(ctx, s, 1, false)
	return nil
}

// HandleUserResponse classifies one utterance against the current question
// and applies the resulting transition.
func (o *QAOrchestrator) HandleUserResponse(ctx context.Context, s *Session, utterance string) (Result, error) {
	index, ok := s.CurrentQuestion()
	if !ok {
		return Result{}, fmt.Errorf("dialogue: session %s not in a question phase (phase %q)", s.CallID, s.Phase)
	}

	s.AppendUtterance(SpeakerUser, utterance)

	question := s.QuestionAt(index)
	result := o.classifier.Classify(ctx, ClassifyRequest{
		Utterance:    utterance,
		Language:     s.Language,
		Mode:         ModeQA,
		QuestionText: question.Text,
		QuestionType: question.Type,
	})

	o.logger.Info("qa response classified",
		"call_id", s.CallID, "question", index, "intent", result.Intent,
		"confidence", result.Confidence, "source", result.Source, "reasoning", result.Reasoning)

	switch result.Intent {
	case IntentAnswer:
		if strings.TrimSpace(result.AnswerText) == "" {
			// An answer intent without extracted text is unusable.
			o.replayQuestion(ctx, s, index, "unclear")
			return result, nil
		}
		o.recordAnswer(s, index, result, utterance)
		o.advance(ctx, s, index)
		return result, nil

	case IntentRepeatRequest:
		if s.RepeatCounts[index] < maxRepeatsPerQuestion {
			s.RepeatCounts[index]++
			o.metrics.ObserveQuestionReplay("repeat")
			o.logger.Info("repeat requested", "call_id", s.CallID, "question", index, "repeat_count", s.RepeatCounts[index])
			o.deliverQuestion(ctx, s, index, true)
			return result, nil
		}
		// One repeat per question is the hard limit.
		o.logger.Info("max repeats exceeded, treating as unclear", "call_id", s.CallID, "question", index)
		o.replayQuestion(ctx, s, index, "unclear")
		return result, nil

	case IntentUnclear:
		o.replayQuestion(ctx, s, index, "unclear")
		return result, nil

	case IntentOffTopic:
		o.replayQuestion(ctx, s, index, "off_topic")
		return result, nil

	default:
		return result, fmt.Errorf("dialogue: unhandled qa intent %q", result.Intent)
	}
}

// GenerateQuestionDelivery produces the natural-language phrasing for the
// question at index, falling back to the literal configured text when the
// language model is unavailable.
func (o *QAOrchestrator) GenerateQuestionDelivery(ctx context.Context, s *Session, index int, isRepeat bool) QuestionDelivery {
	question := s.QuestionAt(index)
	delivery := QuestionDelivery{
		Index:        index,
		QuestionText: question.Text,
		QuestionType: question.Type,
		IsRepeat:     isRepeat,
	}

	text, err := o.generate(ctx, buildDeliveryPrompt(s.Language, question.Type, isRepeat),
		fmt.Sprintf("Question to deliver: %s", question.Text), 200, 0.4)
	if err != nil {
		o.logger.Warn("question phrasing failed, using literal text",
			"error", err, "call_id", s.CallID, "question", index)
		if isRepeat {
			text = scriptFor(repeatPrefixes, s.Language) + question.Text
		} else {
			text = question.Text
		}
	}
	delivery.DeliveryText = text
	return delivery
}

func (o *QAOrchestrator) recordAnswer(s *Session, index int, result Result, utterance string) {
	s.Answers[index] = Answer{
		QuestionIndex: index,
		QuestionText:  s.QuestionAt(index).Text,
		AnswerText:    result.AnswerText,
		Confidence:    result.Confidence,
		Utterance:     utterance,
		WasRepeated:   s.RepeatCounts[index] > 0,
		AnsweredAt:    time.Now().UTC(),
	}
	s.QuestionStates[index] = QuestionAnswered
	o.logger.Info("answer captured",
		"call_id", s.CallID, "question", index, "confidence", result.Confidence,
		"was_repeated", s.RepeatCounts[index] > 0)
}

// advance moves to the next question, or to completion after question 3.
func (o *QAOrchestrator) advance(ctx context.Context, s *Session, answered int) {
	o.playPrompt(ctx, s, o.generateAcknowledgment(ctx, s, s.Answers[answered]))

	if answered < questionCount {
		next := answered + 1
		s.Phase = PhaseForQuestion(next)
		s.QuestionStates[next] = QuestionAsked
		o.deliverQuestion(ctx, s, next, false)
		return
	}

	s.Phase = PhaseCompletion
	s.CompletedAt = time.Now().UTC()
	o.metrics.ObserveSurveyCompleted()
	o.playPrompt(ctx, s, o.generateCompletionMessage(ctx, s))
	o.logger.Info("survey completed", "call_id", s.CallID, "answers", len(s.Answers))
}

func (o *QAOrchestrator) deliverQuestion(ctx context.Context, s *Session, index int, isRepeat bool) {
	delivery := o.GenerateQuestionDelivery(ctx, s, index, isRepeat)
	o.playPrompt(ctx, s, delivery.DeliveryText)
}

// replayQuestion re-delivers the current question without advancing phase
// or touching repeat counts. There is deliberately no cap here; looping
// sessions surface through the replay metric.
func (o *QAOrchestrator) replayQuestion(ctx context.Context, s *Session, index int, cause string) {
	o.metrics.ObserveQuestionReplay(cause)
	o.deliverQuestion(ctx, s, index, false)
}

func (o *QAOrchestrator) generateAcknowledgment(ctx context.Context, s *Session, answer Answer) string {
	text, err := o.generate(ctx, fmt.Sprintf(acknowledgmentPromptFmt, languageName(s.Language)),
		fmt.Sprintf("User answered: %s", answer.AnswerText), 50, 0.5)
	if err != nil {
		return scriptFor(acknowledgmentFallbacks, s.Language)
	}
	return text
}

func (o *QAOrchestrator) generateCompletionMessage(ctx context.Context, s *Session) string {
	text, err := o.generate(ctx, fmt.Sprintf(completionPromptFmt, languageName(s.Language)),
		"Generate survey completion message.", 100, 0.5)
	if err != nil {
		return scriptFor(completionFallbacks, s.Language)
	}
	return text
}

func (o *QAOrchestrator) generate(ctx context.Context, system, prompt string, maxTokens int32, temperature float32) (string, error) {
	if o.llm == nil {
		return "", fmt.Errorf("dialogue: no llm client configured")
	}
	resp, err := o.llm.Complete(ctx, LLMRequest{
		Model:       o.model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("dialogue: empty completion")
	}
	return text, nil
}

func (o *QAOrchestrator) playPrompt(ctx context.Context, s *Session, text string) {
	if text == "" {
		return
	}
	if err := o.telephony.PlayText(ctx, s.CallID, text, s.Language); err != nil {
		o.logger.Warn("failed to play prompt", "error", err, "call_id", s.CallID)
	}
	s.AppendUtterance(SpeakerAgent, text)
}

func buildDeliveryPrompt(language, questionType string, isRepeat bool) string {
	repeatInstruction := ""
	if isRepeat {
		repeatInstruction = "This is a repeat of the question. Acknowledge that you're repeating it politely."
	}
	return fmt.Sprintf(questionDeliveryPromptFmt,
		languageName(language), repeatInstruction, questionDeliveryTypeHints[questionType])
}

func languageName(language string) string {
	if language == LanguageItalian {
		return "Italian"
	}
	return "English"
}
