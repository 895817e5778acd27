package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	out  *bedrockruntime.ConverseOutput
	err  error
	last *bedrockruntime.ConverseInput
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.last = params
	return f.out, f.err
}

func converseTextOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
	}
}

func TestBedrockComplete(t *testing.T) {
	api := &fakeConverseAPI{out: converseTextOutput("  classified as POSITIVE  ")}
	client := NewBedrockLLMClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:       "anthropic.claude-3-haiku",
		System:      []string{"you are a classifier"},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "yes"}},
		MaxTokens:   100,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	require.Equal(t, "classified as POSITIVE", resp.Text)
	require.Equal(t, string(brtypes.StopReasonEndTurn), resp.StopReason)

	require.NotNil(t, api.last)
	require.Equal(t, "anthropic.claude-3-haiku", *api.last.ModelId)
	require.Len(t, api.last.System, 1)
	require.Len(t, api.last.Messages, 1)
	require.NotNil(t, api.last.InferenceConfig)
	require.EqualValues(t, 100, *api.last.InferenceConfig.MaxTokens)
}

func TestBedrockComplete_MissingModel(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverseAPI{})
	_, err := client.Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestBedrockComplete_APIError(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverseAPI{err: errors.New("throttled")})
	_, err := client.Complete(context.Background(), LLMRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestBedrockComplete_SystemRoleMessagePromoted(t *testing.T) {
	api := &fakeConverseAPI{out: converseTextOutput("ok")}
	client := NewBedrockLLMClient(api)

	_, err := client.Complete(context.Background(), LLMRequest{
		Model: "m",
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "be brief"},
			{Role: ChatRoleUser, Content: "hello"},
		},
	})
	require.NoError(t, err)
	require.Len(t, api.last.System, 1)
	require.Len(t, api.last.Messages, 1)
}

func TestBedrockExtractOutputText_Errors(t *testing.T) {
	_, err := bedrockExtractOutputText(nil)
	require.Error(t, err)

	_, err = bedrockExtractOutputText(&bedrockruntime.ConverseOutput{})
	require.Error(t, err)

	_, err = bedrockExtractOutputText(&bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{}},
	})
	require.Error(t, err)
}
