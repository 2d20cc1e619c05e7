package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"mailassist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmailSource struct {
	mock.Mock
}

func (m *MockEmailSource) CurrentEmail(ctx context.Context) (*models.Email, error) {
	args := m.Called(ctx)
	email, _ := args.Get(0).(*models.Email)
	return email, args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, email *models.Email) (*models.FullEmailAnalysis, error) {
	args := m.Called(ctx, email)
	result, _ := args.Get(0).(*models.FullEmailAnalysis)
	return result, args.Error(1)
}

type MockSuggester struct {
	mock.Mock
}

func (m *MockSuggester) GenerateSuggestions(ctx context.Context, email *models.Email, tone models.Tone, instruction string, count int, systemInstruction string) ([]string, error) {
	args := m.Called(ctx, email, tone, instruction, count, systemInstruction)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

var (
	sampleEmail = &models.Email{
		ID:      "m1",
		Sender:  models.Contact{Name: "Priya", Email: "priya@example.com"},
		Subject: "Timeline",
		Body:    "Can we keep the date?",
	}
	reminder       = "Friday"
	sampleAnalysis = &models.FullEmailAnalysis{
		Security:    models.SecurityAnalysis{Status: models.SecuritySpam, Details: "bulk sender"},
		Sentiment:   "Concerned",
		Urgency:     "High",
		Intent:      "Request",
		KeyPoints:   []string{"date"},
		NextActions: []string{"reply"},
		FollowUp:    models.FollowUpAnalysis{RequiresFollowUp: true, Reason: "waiting", SuggestedReminder: &reminder},
	}
)

type fixture struct {
	emails    *MockEmailSource
	analyzer  *MockAnalyzer
	suggester *MockSuggester
	changes   int32
	ctrl      *Controller
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		emails:    &MockEmailSource{},
		analyzer:  &MockAnalyzer{},
		suggester: &MockSuggester{},
	}
	opts = append(opts, WithOnChange(func() { atomic.AddInt32(&f.changes, 1) }))
	f.ctrl = New(f.emails, f.analyzer, f.suggester, opts...)
	return f
}

func (f *fixture) loaded(t *testing.T, first []string) {
	t.Helper()
	f.emails.On("CurrentEmail", mock.Anything).Return(sampleEmail, nil)
	f.analyzer.On("Analyze", mock.Anything, sampleEmail).Return(sampleAnalysis, nil)
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 3, "").Return(first, nil).Once()
	f.ctrl.InitialLoad(context.Background())
	require.Empty(t, f.ctrl.Snapshot().Error)
}

func TestInitialLoad_PassThrough(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"a", "b", "c"})

	s := f.ctrl.Snapshot()
	assert.Same(t, sampleEmail, s.Email)
	assert.Equal(t, sampleAnalysis.Security, *s.Security)
	assert.Equal(t, sampleAnalysis.Result(), *s.Analysis)
	assert.Equal(t, sampleAnalysis.FollowUp, *s.FollowUp)
	assert.Equal(t, []string{"a", "b", "c"}, s.Suggestions)
	assert.Equal(t, 0, s.HistoryDepth)
	assert.False(t, s.Loading)
	assert.True(t, s.Started)
	assert.Equal(t, NoError, s.ErrorKind)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.changes))

	mock.AssertExpectationsForObjects(t, f.emails, f.analyzer, f.suggester)
}

func TestInitialLoad_SuggestionFailureKeepsAnalysis(t *testing.T) {
	f := newFixture()
	f.emails.On("CurrentEmail", mock.Anything).Return(sampleEmail, nil)
	f.analyzer.On("Analyze", mock.Anything, sampleEmail).Return(sampleAnalysis, nil)
	f.suggester.On("GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("quota"))

	f.ctrl.InitialLoad(context.Background())

	s := f.ctrl.Snapshot()
	assert.Equal(t, InitialLoadFailedMessage, s.Error)
	assert.Equal(t, ErrorInitialLoad, s.ErrorKind)
	require.NotNil(t, s.Security)
	assert.Equal(t, models.SecuritySpam, s.Security.Status)
	require.NotNil(t, s.Analysis)
	assert.Equal(t, "Concerned", s.Analysis.Sentiment)
	require.NotNil(t, s.FollowUp)
	assert.Empty(t, s.Suggestions)
	assert.False(t, s.Loading)
}

func TestInitialLoad_EmailFailureShowsSafeDefault(t *testing.T) {
	f := newFixture()
	f.emails.On("CurrentEmail", mock.Anything).Return(nil, errors.New("offline"))

	f.ctrl.InitialLoad(context.Background())

	s := f.ctrl.Snapshot()
	assert.Equal(t, InitialLoadFailedMessage, s.Error)
	assert.Nil(t, s.Email)
	assert.Equal(t, models.UnknownSecurity(), s.Security)
	assert.Nil(t, s.Analysis)
	assert.False(t, s.Loading)
	f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
	f.suggester.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitialLoad_AnalysisFailure(t *testing.T) {
	f := newFixture()
	f.emails.On("CurrentEmail", mock.Anything).Return(sampleEmail, nil)
	f.analyzer.On("Analyze", mock.Anything, sampleEmail).Return(nil, errors.New("bad json"))

	f.ctrl.InitialLoad(context.Background())

	s := f.ctrl.Snapshot()
	assert.Same(t, sampleEmail, s.Email)
	assert.Equal(t, InitialLoadFailedMessage, s.Error)
	assert.Equal(t, "Could not perform analysis.", s.Security.Details)
	f.suggester.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitialLoad_UsesConfiguredSettings(t *testing.T) {
	settings := models.DefaultSettings()
	settings.SuggestionCount = 5
	settings.SystemInstruction = "Sign as Alex"
	f := newFixture(WithSettings(settings))

	f.emails.On("CurrentEmail", mock.Anything).Return(sampleEmail, nil)
	f.analyzer.On("Analyze", mock.Anything, sampleEmail).Return(sampleAnalysis, nil)
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 5, "Sign as Alex").
		Return([]string{"x"}, nil)

	f.ctrl.InitialLoad(context.Background())
	f.suggester.AssertExpectations(t)
}

func TestRegenerate_PushesHistoryOnce(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"a1", "a2"})

	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.Tone("More formal"), "", 3, "").
		Return([]string{"b1", "b2"}, nil).Once()

	before := f.ctrl.Snapshot().HistoryDepth
	require.NoError(t, f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, "More formal", "", 3, ""))

	s := f.ctrl.Snapshot()
	assert.Equal(t, before+1, s.HistoryDepth)
	assert.Equal(t, []string{"b1", "b2"}, s.Suggestions)
}

func TestRegenerate_EmptyListIsNotPushed(t *testing.T) {
	f := newFixture()
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 3, "").
		Return([]string{"a"}, nil).Once()

	require.NoError(t, f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, models.DefaultTone, "", 3, ""))
	assert.Equal(t, 0, f.ctrl.Snapshot().HistoryDepth)
}

func TestRegenerate_FailureKeepsSuggestions(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"keep me"})

	f.suggester.On("GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout")).Once()

	err := f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, "Shorter", "", 3, "")
	require.Error(t, err)

	s := f.ctrl.Snapshot()
	assert.Equal(t, []string{"keep me"}, s.Suggestions)
	assert.Equal(t, RegenerateFailedMessage, s.Error)
	assert.Equal(t, ErrorRegenerate, s.ErrorKind)
	assert.False(t, s.Loading)
}

func TestRegenerate_ClearsPreviousError(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"a"})

	f.suggester.On("GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout")).Once()
	_ = f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, "Shorter", "", 3, "")
	require.NotEmpty(t, f.ctrl.Snapshot().Error)

	f.suggester.On("GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]string{"b"}, nil).Once()
	require.NoError(t, f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, "Shorter", "", 3, ""))
	assert.Empty(t, f.ctrl.Snapshot().Error)
}

func TestGoBack(t *testing.T) {
	f := newFixture()

	assert.False(t, f.ctrl.GoBack(), "no-op at depth 0")
	assert.Empty(t, f.ctrl.Snapshot().Suggestions)

	f.loaded(t, []string{"gen0"})
	for _, next := range []string{"gen1", "gen2", "gen3"} {
		f.suggester.On("GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]string{next}, nil).Once()
		require.NoError(t, f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, models.DefaultTone, "", 3, ""))
	}
	require.Equal(t, []string{"gen3"}, f.ctrl.Snapshot().Suggestions)
	require.Equal(t, 3, f.ctrl.Snapshot().HistoryDepth)

	assert.True(t, f.ctrl.GoBack())
	assert.Equal(t, []string{"gen2"}, f.ctrl.Snapshot().Suggestions)
	assert.True(t, f.ctrl.GoBack())
	assert.True(t, f.ctrl.GoBack())
	assert.Equal(t, []string{"gen0"}, f.ctrl.Snapshot().Suggestions)
	assert.Equal(t, 0, f.ctrl.Snapshot().HistoryDepth)

	assert.False(t, f.ctrl.GoBack())
	assert.Equal(t, []string{"gen0"}, f.ctrl.Snapshot().Suggestions)
}

func TestHistoryEntriesAreSnapshots(t *testing.T) {
	f := newFixture()
	first := []string{"original"}
	f.loaded(t, first)

	first[0] = "mutated by caller"
	snap := f.ctrl.Snapshot()
	snap.Suggestions[0] = "mutated by reader"

	f.suggester.On("GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]string{"next"}, nil).Once()
	require.NoError(t, f.ctrl.RegenerateSuggestions(context.Background(), sampleEmail, models.DefaultTone, "", 3, ""))

	require.True(t, f.ctrl.GoBack())
	assert.Equal(t, []string{"original"}, f.ctrl.Snapshot().Suggestions)
}

func TestShorterToneRequest(t *testing.T) {
	settings := models.DefaultSettings()
	settings.SystemInstruction = "Keep it friendly"
	f := newFixture(WithSettings(settings))
	f.emails.On("CurrentEmail", mock.Anything).Return(sampleEmail, nil)
	f.analyzer.On("Analyze", mock.Anything, sampleEmail).Return(sampleAnalysis, nil)
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 3, "Keep it friendly").
		Return([]string{"x"}, nil).Once()
	f.ctrl.InitialLoad(context.Background())

	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.Tone("Shorter"), "", 3, "Keep it friendly").
		Return([]string{"one", "two", "three"}, nil).Once()

	require.NoError(t, f.ctrl.SetTone("Shorter"))
	f.ctrl.SetInstruction("")
	require.NoError(t, f.ctrl.ApplyInstructions(context.Background()))

	assert.Len(t, f.ctrl.Snapshot().Suggestions, 3)
	f.suggester.AssertExpectations(t)
}

func TestApplyInstructions_NoEmail(t *testing.T) {
	f := newFixture()
	assert.ErrorIs(t, f.ctrl.ApplyInstructions(context.Background()), ErrNoEmail)
	f.suggester.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetTone_Unknown(t *testing.T) {
	f := newFixture()
	assert.Error(t, f.ctrl.SetTone("Louder"))
	assert.Equal(t, models.DefaultTone, f.ctrl.Snapshot().Tone)
}

func TestToggleTheme(t *testing.T) {
	settings := models.DefaultSettings()
	settings.SyncWithSystem = true
	f := newFixture(WithSettings(settings))

	// synced to a dark platform, so the effective theme is dark
	assert.Equal(t, models.ThemeDark, f.ctrl.EffectiveTheme(models.ThemeDark))

	next := f.ctrl.ToggleTheme(models.ThemeDark)
	assert.Equal(t, models.ThemeLight, next)

	s := f.ctrl.Settings()
	assert.False(t, s.SyncWithSystem)
	assert.Equal(t, models.ThemeLight, s.Theme)

	// sync is off now; platform no longer matters
	assert.Equal(t, models.ThemeLight, f.ctrl.EffectiveTheme(models.ThemeDark))
	assert.Equal(t, models.ThemeDark, f.ctrl.ToggleTheme(models.ThemeDark))
}

func TestReplaceSettings(t *testing.T) {
	f := newFixture()
	s := models.DefaultSettings()
	s.ShowSecurity = false
	s.SuggestionCount = 0

	applied := f.ctrl.ReplaceSettings(s)
	assert.False(t, applied.ShowSecurity)
	assert.Equal(t, models.DefaultSuggestionCount, applied.SuggestionCount)
	assert.Equal(t, applied, f.ctrl.Settings())
}

func TestBeginInitialLoad_OnlyOnce(t *testing.T) {
	f := newFixture()
	assert.True(t, f.ctrl.BeginInitialLoad())
	assert.False(t, f.ctrl.BeginInitialLoad())
	assert.True(t, f.ctrl.Snapshot().Loading)

	f.emails.On("CurrentEmail", mock.Anything).Return(nil, errors.New("offline"))
	f.ctrl.InitialLoad(context.Background())
	assert.False(t, f.ctrl.Snapshot().Loading)
}

func TestReload_FailureBeforeAnalysisReplacesSecurity(t *testing.T) {
	tests := []struct {
		name string
		fail func(f *fixture)
	}{
		{
			name: "analysis fails",
			fail: func(f *fixture) {
				f.analyzer.ExpectedCalls = nil
				f.analyzer.On("Analyze", mock.Anything, sampleEmail).Return(nil, errors.New("model down"))
			},
		},
		{
			name: "email fetch fails",
			fail: func(f *fixture) {
				f.emails.ExpectedCalls = nil
				f.emails.On("CurrentEmail", mock.Anything).Return(nil, errors.New("mailbox offline"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.loaded(t, []string{"a", "b"})
			require.Equal(t, models.SecuritySpam, f.ctrl.Snapshot().Security.Status)

			tt.fail(f)
			f.ctrl.BeginReload()
			f.ctrl.InitialLoad(context.Background())

			s := f.ctrl.Snapshot()
			assert.Equal(t, InitialLoadFailedMessage, s.Error)
			assert.Equal(t, *models.UnknownSecurity(), *s.Security)
			assert.Equal(t, []string{"a", "b"}, s.Suggestions)
			assert.False(t, s.Loading)
			f.suggester.AssertNumberOfCalls(t, "GenerateSuggestions", 1)
		})
	}
}

func TestReload_SuggestionFailureKeepsAnalysis(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"a", "b"})
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 3, "").Return(nil, errors.New("timeout"))

	f.ctrl.InitialLoad(context.Background())

	s := f.ctrl.Snapshot()
	assert.Equal(t, InitialLoadFailedMessage, s.Error)
	assert.Equal(t, sampleAnalysis.Security, *s.Security)
	assert.Equal(t, []string{"a", "b"}, s.Suggestions)
}

func TestBeginRegenerate_LoadingUntilSettled(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"a"})
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 3, "").Return([]string{"b"}, nil)

	f.ctrl.BeginRegenerate()
	assert.True(t, f.ctrl.Snapshot().Loading)

	require.NoError(t, f.ctrl.ApplyInstructions(context.Background()))
	s := f.ctrl.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, []string{"b"}, s.Suggestions)
}

func TestBeginRegenerate_ReleasedWithoutEmail(t *testing.T) {
	f := newFixture()
	f.ctrl.BeginRegenerate()
	assert.True(t, f.ctrl.Snapshot().Loading)

	assert.ErrorIs(t, f.ctrl.ApplyInstructions(context.Background()), ErrNoEmail)
	assert.False(t, f.ctrl.Snapshot().Loading)
}

func TestBeginReload_LoadingUntilSettled(t *testing.T) {
	f := newFixture()
	f.loaded(t, []string{"a"})
	f.suggester.On("GenerateSuggestions", mock.Anything, sampleEmail, models.DefaultTone, "", 3, "").Return([]string{"b"}, nil)

	f.ctrl.BeginReload()
	assert.True(t, f.ctrl.Snapshot().Loading)

	f.ctrl.InitialLoad(context.Background())
	assert.False(t, f.ctrl.Snapshot().Loading)
	assert.Empty(t, f.ctrl.Snapshot().Error)
}

// blockingSuggester lets a test control when each call settles
type blockingSuggester struct {
	calls chan chan []string
}

func (b *blockingSuggester) GenerateSuggestions(ctx context.Context, email *models.Email, tone models.Tone, instruction string, count int, systemInstruction string) ([]string, error) {
	reply := make(chan []string)
	b.calls <- reply
	return <-reply, nil
}

func TestLoadingWhileRegenerating(t *testing.T) {
	b := &blockingSuggester{calls: make(chan chan []string)}
	ctrl := New(&MockEmailSource{}, &MockAnalyzer{}, b)

	done := make(chan struct{})
	go func() {
		_ = ctrl.RegenerateSuggestions(context.Background(), sampleEmail, models.DefaultTone, "", 3, "")
		close(done)
	}()

	reply := <-b.calls
	assert.True(t, ctrl.Snapshot().Loading)
	reply <- []string{"done"}
	<-done

	assert.False(t, ctrl.Snapshot().Loading)
	assert.Equal(t, []string{"done"}, ctrl.Snapshot().Suggestions)
}

func TestOverlappingRegenerations_LastToSettleWins(t *testing.T) {
	b := &blockingSuggester{calls: make(chan chan []string)}
	ctrl := New(&MockEmailSource{}, &MockAnalyzer{}, b)

	done := make(chan struct{}, 2)
	run := func() {
		_ = ctrl.RegenerateSuggestions(context.Background(), sampleEmail, models.DefaultTone, "", 3, "")
		done <- struct{}{}
	}

	go run()
	first := <-b.calls
	go run()
	second := <-b.calls

	second <- []string{"second"}
	<-done
	assert.True(t, ctrl.Snapshot().Loading, "first call still pending")

	first <- []string{"first"}
	<-done

	s := ctrl.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, []string{"first"}, s.Suggestions)
}
