package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"keuangan/internal/clock"
	"keuangan/internal/core"
	"keuangan/internal/log"
)

type fakeGenerator struct {
	reply   string
	err     error
	parts   []*genai.Part
	jsonOut bool
}

func (f *fakeGenerator) generate(_ context.Context, parts []*genai.Part, jsonOut bool) (string, error) {
	f.parts = parts
	f.jsonOut = jsonOut
	return f.reply, f.err
}

func testNow() clock.Info {
	loc, _ := time.LoadLocation("Asia/Jakarta")
	return clock.Fixed(time.Date(2024, 6, 15, 10, 0, 0, 0, loc))
}

func newTestGemini(gen generator) *Gemini {
	return newGemini(gen, log.NewText(io.Discard, 0, "test"))
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"amount":1}]`, `[{"amount":1}]`},
		{"fenced", "```json\n[{\"amount\":1}]\n```", `[{"amount":1}]`},
		{"prose around", "Berikut hasilnya:\n[1,2]\nSemoga membantu", `[1,2]`},
		{"object", "```\n{\"kind\":\"NARRATION\"}\n```", `{"kind":"NARRATION"}`},
		{"single line fence", "```", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestParseCandidates(t *testing.T) {
	out, err := ParseCandidates("```json\n[{\"amount\": -25000, \"category\": \"Makanan\", \"description\": \"bakso\", \"date\": \"2024-06-15\"}, {\"amount\": \"50rb\"}]\n```")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, *core.RawNumber("-25000"), *out[0].Amount)
	assert.Equal(t, "Makanan", *out[0].Category)
	assert.Equal(t, *core.RawText("50rb"), *out[1].Amount)
	assert.Nil(t, out[1].Category)

	one, err := ParseCandidates(`{"amount": 1000, "category": "Bonus"}`)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	mixed, err := ParseCandidates(`[{"amount": -25000, "category": "Makanan"}, {"amount": -10000, "category": 7, "date": 20240615}, 42]`)
	require.NoError(t, err)
	require.Len(t, mixed, 2)
	assert.Equal(t, "Makanan", *mixed[0].Category)
	assert.Equal(t, *core.RawNumber("-10000"), *mixed[1].Amount)
	assert.Equal(t, "7", *mixed[1].Category)
	assert.Equal(t, "20240615", *mixed[1].Date)

	empty, err := ParseCandidates(`[]`)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseCandidates("maaf saya tidak mengerti")
	assert.True(t, errors.Is(err, core.ErrExtraction))
}

func TestParseIntent(t *testing.T) {
	q, err := ParseIntent(`{"kind": "structured_query", "confidence": 0.92, "filters": {"period": "this_week", "category": "Makanan", "user_scope": "self"}}`)
	require.NoError(t, err)
	assert.Equal(t, core.IntentStructuredQuery, q.Kind)
	assert.InDelta(t, 0.92, q.Confidence, 1e-9)
	assert.Equal(t, "this_week", q.Filters.Period)
	assert.Equal(t, core.ScopeSelf, q.Filters.UserScope)

	_, err = ParseIntent(`{"kind": "CHITCHAT", "confidence": 0.5}`)
	assert.True(t, errors.Is(err, core.ErrUnknownIntent))

	_, err = ParseIntent(`{"kind": "NARRATION", "confidence": 3}`)
	assert.Error(t, err)
}

func TestExtractTextPromptCarriesTimeAndMessage(t *testing.T) {
	gen := &fakeGenerator{reply: `[{"amount": -15000, "category": "Makanan", "description": "kopi"}]`}
	g := newTestGemini(gen)

	out, err := g.ExtractText(context.Background(), "kopi 15rb", testNow())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, gen.jsonOut)

	prompt := gen.parts[0].Text
	assert.Contains(t, prompt, "2024-06-15")
	assert.Contains(t, prompt, "Sabtu")
	assert.Contains(t, prompt, `"kopi 15rb"`)
	assert.Contains(t, prompt, "Pengembangan Keluarga")
	assert.Contains(t, prompt, "Lainnya")
}

func TestExtractImageSendsInlineData(t *testing.T) {
	gen := &fakeGenerator{reply: `[]`}
	g := newTestGemini(gen)
	img := []byte{0xff, 0xd8, 0xff}

	out, err := g.ExtractImage(context.Background(), img, "image/jpeg", testNow())
	require.NoError(t, err)
	assert.Empty(t, out)
	require.Len(t, gen.parts, 2)
	assert.Equal(t, "image/jpeg", gen.parts[1].InlineData.MIMEType)
	assert.Equal(t, img, gen.parts[1].InlineData.Data)
	assert.NotContains(t, gen.parts[0].Text, "Gaji", "receipts only use expense categories")
}

func TestExtractionFailureWrapsErrExtraction(t *testing.T) {
	g := newTestGemini(&fakeGenerator{err: errors.New("quota exceeded")})
	_, err := g.ExtractText(context.Background(), "makan 20rb", testNow())
	assert.True(t, errors.Is(err, core.ErrExtraction))
}

func TestAnswerAndHelp(t *testing.T) {
	gen := &fakeGenerator{reply: "  Hemat di kategori Makanan.  "}
	g := newTestGemini(gen)

	ans, err := g.Answer(context.Background(), "gimana cara hemat?", "Total Pengeluaran: Rp 100.000", testNow())
	require.NoError(t, err)
	assert.Equal(t, "Hemat di kategori Makanan.", ans)
	assert.False(t, gen.jsonOut)
	assert.True(t, strings.Contains(gen.parts[0].Text, "Total Pengeluaran: Rp 100.000"))

	help, err := g.Help(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, help)
}

func TestUnavailable(t *testing.T) {
	var m Model = Unavailable{}
	_, err := m.ExtractText(context.Background(), "x", testNow())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.Help(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), " ", "", nil)
	assert.Error(t, err)
}
