package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const costDoc = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">` +
	`<voice name="en-US-JennyNeural"><p>Hello</p></voice></speak>`

func TestCostEstimatorBillableCharacters(t *testing.T) {
	assert.Equal(t, len("<p>Hello</p>"), NewAzureCostEstimator().BillableCharacters(costDoc))
	assert.Equal(t, len("<p>Hello</p>"), NewCostEstimator("AZURE").BillableCharacters(costDoc))
	assert.Equal(t, len(costDoc), NewCostEstimator(KindGoogle).BillableCharacters(costDoc))
	assert.Equal(t, len("Hello"), NewCostEstimator(KindPolly).BillableCharacters(costDoc))
}

func TestCostEstimatorCountsCodePoints(t *testing.T) {
	doc := "<speak><p>héllo ✓</p></speak>"
	assert.Equal(t, 7, NewCostEstimator(KindPolly).BillableCharacters(doc))
}

func TestCostEstimate(t *testing.T) {
	doc := "<speak>" + strings.Repeat("a", 1_000_000) + "</speak>"
	assert.InDelta(t, 16.0, NewAzureCostEstimator().Estimate(doc), 1e-9)
	assert.Zero(t, NewAzureCostEstimator().Estimate("<speak></speak>"))
}

func TestSynthesisErrorThrottling(t *testing.T) {
	err := fmt.Errorf("part 2: %w", throttleErr("a"))
	assert.True(t, IsThrottled(err))
	assert.False(t, IsThrottled(failed("a", "400", "bad", nil)))
	assert.False(t, IsThrottled(errBoom))
	assert.Equal(t, "a: bad (400): boom", failed("a", "400", "bad", errBoom).Error())
}

func TestClassifyGoogleError(t *testing.T) {
	err := classifyGoogleError("g", status.Error(codes.ResourceExhausted, "quota"))
	assert.True(t, IsThrottled(err))

	err = classifyGoogleError("g", status.Error(codes.InvalidArgument, "bad ssml"))
	assert.False(t, IsThrottled(err))
	var se *SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "InvalidArgument", se.Code)
}

func TestClassifyPollyError(t *testing.T) {
	for _, code := range []string{"ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException"} {
		err := classifyPollyError("p", &smithy.GenericAPIError{Code: code, Message: "slow down"})
		assert.True(t, IsThrottled(err), code)
	}
	err := classifyPollyError("p", &smithy.GenericAPIError{Code: "InvalidSsmlException"})
	assert.False(t, IsThrottled(err))
	assert.False(t, IsThrottled(classifyPollyError("p", errBoom)))
}

func TestMaxRequestWeight(t *testing.T) {
	assert.Equal(t, 7000, MaxRequestWeight(KindAzure))
	assert.Equal(t, 4500, MaxRequestWeight("Google"))
	assert.Equal(t, 2800, MaxRequestWeight(KindPolly))
	assert.Equal(t, 7000, MaxRequestWeight(""))
}

func TestNewProviderUnknownKind(t *testing.T) {
	_, err := NewProvider(context.Background(), BackendConfig{Kind: "espeak"}, nil)
	assert.ErrorContains(t, err, "unknown TTS provider")
}

func TestNewProviderWrapsRateLimit(t *testing.T) {
	p, err := NewProvider(context.Background(), BackendConfig{Kind: KindAzure, Region: "westus", SubscriptionKey: "k", RequestsPerMinute: 20}, nil)
	require.NoError(t, err)
	_, ok := p.(*RateLimited)
	assert.True(t, ok)
	assert.Equal(t, "azure", p.Name())
}

func TestRateLimitedPassesThroughAndHonoursContext(t *testing.T) {
	inner := &fakeProvider{name: "x", res: AudioResult{Data: []byte("a"), Format: FormatMP3}}
	r := NewRateLimited(inner, 60_000)

	res, err := r.Synthesize(context.Background(), "<speak/>")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), res.Data)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Synthesize(ctx, "<speak/>")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestFileWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := &fakeProvider{name: "x", res: AudioResult{Data: []byte("mp3"), Format: FormatMP3}}
	w := NewFileWriter(p, fs)

	require.NoError(t, w.SynthesizeToFile(context.Background(), "<speak/>", "/a.mp3"))
	data, err := afero.ReadFile(fs, "/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "mp3", string(data))
	ok, _ := afero.Exists(fs, "/a.mp3.partial")
	assert.False(t, ok)
	assert.Equal(t, "x", w.Name())
}

func TestFileWriterErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	w := NewFileWriter(&fakeProvider{name: "x", res: AudioResult{Format: FormatMP3}}, fs)
	assert.ErrorIs(t, w.SynthesizeToFile(context.Background(), "<speak/>", "/a.mp3"), ErrEmptyAudio)

	w = NewFileWriter(&fakeProvider{name: "x", res: AudioResult{Data: []byte("x"), Format: "wav"}}, fs)
	assert.ErrorContains(t, w.SynthesizeToFile(context.Background(), "<speak/>", "/a.mp3"), "unsupported audio format")

	w = NewFileWriter(&fakeProvider{name: "x", err: throttleErr("x")}, fs)
	assert.True(t, IsThrottled(w.SynthesizeToFile(context.Background(), "<speak/>", "/a.mp3")))

	ok, _ := afero.Exists(fs, "/a.mp3")
	assert.False(t, ok)
}

func TestNonEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/empty", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "/full", []byte("x"), 0o644))
	require.NoError(t, fs.MkdirAll("/dir", 0o755))

	for path, want := range map[string]bool{"/empty": false, "/full": true, "/dir": false, "/missing": false} {
		got, err := NonEmptyFile(fs, path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}

func TestResolveVoice(t *testing.T) {
	catalog, err := AvailableVoices("azure-news")
	require.NoError(t, err)

	v, err := ResolveVoice(catalog, "ariacasual")
	require.NoError(t, err)
	assert.Equal(t, "en-US-AriaNeural", v.ID)
	assert.Equal(t, "newscast-casual", v.Style)

	v, err = ResolveVoice(catalog, "en-US-DavisNeural")
	require.NoError(t, err)
	assert.Equal(t, "en-US-DavisNeural", v.ID)
	assert.Empty(t, v.Style)

	_, err = ResolveVoice(catalog, "Nobody")
	assert.ErrorContains(t, err, "AriaCasual")

	_, err = AvailableVoices("festival")
	assert.True(t, err != nil && !errors.Is(err, ErrThrottled))
}
