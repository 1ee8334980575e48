package insight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/itinerary-backend-go/internal/errs"
	"github.com/jengzang/itinerary-backend-go/internal/models"
)

type countingGenerator struct {
	text  string
	err   error
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, place, city, category string) (string, error) {
	g.calls++
	return g.text, g.err
}

func TestResolvePriority(t *testing.T) {
	gen := &countingGenerator{text: "  Generated text.  "}
	r := NewResolver(gen)
	ctx := context.Background()

	withRecord := models.Attraction{Name: "Fort", Category: "landmark", HistoricalImportance: " Built in 1638. "}
	ins := r.Resolve(ctx, withRecord, "Delhi")
	assert.Equal(t, SourceRecord, ins.Source)
	assert.Equal(t, "Built in 1638.", ins.Importance)
	assert.Equal(t, 0, gen.calls)

	ins = r.Resolve(ctx, models.Attraction{Name: "Step Well", Category: "landmark"}, "Delhi")
	assert.Equal(t, SourceLLM, ins.Source)
	assert.Equal(t, "Generated text.", ins.Importance)
	assert.Equal(t, 1, gen.calls)
}

func TestResolveCachesPerPlaceAndCity(t *testing.T) {
	gen := &countingGenerator{text: "x"}
	r := NewResolver(gen)
	a := models.Attraction{Name: "Old Market", Category: "market"}

	r.Resolve(context.Background(), a, "Jaipur")
	r.Resolve(context.Background(), a, "Jaipur")
	assert.Equal(t, 1, gen.calls)

	r.Resolve(context.Background(), a, "Agra")
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, r.Cached())
}

func TestResolveFallsBackToStub(t *testing.T) {
	r := NewResolver(&countingGenerator{err: errors.New("timeout")})
	ins := r.Resolve(context.Background(), models.Attraction{Name: "Lotus", Category: "Temple"}, "")
	assert.Equal(t, SourceStub, ins.Source)
	assert.Equal(t, StubText("temple"), ins.Importance)

	r = NewResolver(nil)
	ins = r.Resolve(context.Background(), models.Attraction{Category: "aquarium"}, "Goa")
	assert.Equal(t, "Unknown Place", ins.PlaceName)
	assert.Equal(t, StubText("default"), ins.Importance)
}

func TestFormatForDisplay(t *testing.T) {
	ins := Insight{Importance: StubText("museum")}
	lines := ins.FormatForDisplay(30)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 30)
	}
	assert.Equal(t, strings.Join(strings.Fields(ins.Importance), " "), strings.Join(lines, " "))

	assert.Empty(t, Insight{}.FormatForDisplay(10))
	assert.Equal(t, []string{"unbreakable-long-word"}, Insight{Importance: "unbreakable-long-word"}.FormatForDisplay(5))
}

type fakeChat struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAIGenerator(t *testing.T) {
	_, err := NewOpenAIGenerator("", "")
	assert.True(t, errs.IsConfiguration(err))

	chat := &fakeChat{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: " A citadel. "}}},
	}}
	g := &OpenAIGenerator{client: chat, model: DefaultModel}

	text, err := g.Generate(context.Background(), "Red Fort", "Delhi", "landmark")
	require.NoError(t, err)
	assert.Equal(t, "A citadel.", text)
	assert.Equal(t, DefaultModel, chat.req.Model)
	require.Len(t, chat.req.Messages, 2)
	assert.Contains(t, chat.req.Messages[1].Content, "'Red Fort' in Delhi")

	chat.resp = openai.ChatCompletionResponse{}
	_, err = g.Generate(context.Background(), "Red Fort", "Delhi", "landmark")
	assert.Error(t, err)
}

func TestPromptDefaultsCity(t *testing.T) {
	assert.Contains(t, Prompt("Gate", "", "landmark"), "in the destination city")
}
