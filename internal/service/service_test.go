package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/adapter/objectstore"
	"github.com/KaanK026/Harvia/internal/adapter/predictor"
	"github.com/KaanK026/Harvia/internal/adapter/profile"
	"github.com/KaanK026/Harvia/internal/config"
	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/repository"
	"github.com/KaanK026/Harvia/tests/helpers"
)

func testConfig() *config.Config {
	return &config.Config{
		QuestionMaxLength: 2000,
		StreamIdleTimeout: time.Second,
		MaxImageBytes:     1024,
	}
}

func newTestService(t *testing.T, engine *helpers.StubEngine) (*Service, repository.Store) {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	svc := New(Deps{Store: store, Engine: engine}, testConfig(), zap.NewNop())
	return svc, store
}

func kindOf(t *testing.T, err error) domain.ErrorKind {
	t.Helper()
	require.Error(t, err)
	var de *domain.Error
	require.True(t, errors.As(err, &de), "expected *domain.Error, got %T", err)
	return de.Kind
}

func TestAskGeneratesUniqueSessionIDs(t *testing.T) {
	svc, _ := newTestService(t, &helpers.StubEngine{})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		resp, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "How hot?"})
		require.NoError(t, err)
		_, err = uuid.Parse(resp.SessionID)
		require.NoError(t, err)
		assert.False(t, seen[resp.SessionID], "duplicate session id")
		seen[resp.SessionID] = true
	}
}

func TestAskTwoQuestionConversation(t *testing.T) {
	engine := &helpers.StubEngine{}
	svc, store := newTestService(t, engine)
	ctx := context.Background()

	first, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "What is a sauna?"})
	require.NoError(t, err)
	assert.Equal(t, "Answer: What is a sauna?", first.Answer.Answer)
	assert.Equal(t, []domain.Source{{Source: "sauna-guide.md", Score: 0.9}}, first.Sources)

	second, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "How long should I stay?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	histories := engine.Histories()
	require.Len(t, histories, 2)
	assert.Empty(t, histories[0])
	assert.Equal(t, []domain.Exchange{{Question: "What is a sauna?", Answer: "Answer: What is a sauna?"}}, histories[1])

	session, err := store.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	require.Len(t, session.History, 4)
	assert.Equal(t, domain.RoleUser, session.History[2].Role)
	assert.Equal(t, "How long should I stay?", session.History[2].Content)
	assert.Equal(t, domain.RoleAssistant, session.History[3].Role)
}

func TestAskNotReadyDoesNotTouchSession(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{NotReady: true})
	ctx := context.Background()

	_, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "hi", SessionID: "s1"})
	assert.Equal(t, domain.KindUnavailable, kindOf(t, err))

	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestAskValidation(t *testing.T) {
	svc, _ := newTestService(t, &helpers.StubEngine{})

	_, err := svc.Ask(context.Background(), "u1", domain.QuestionRequest{Question: "   "})
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	_, err = svc.Ask(context.Background(), "u1", domain.QuestionRequest{Question: strings.Repeat("ö", 2001)})
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	_, err = svc.Ask(context.Background(), "u1", domain.QuestionRequest{Question: strings.Repeat("ö", 2000)})
	assert.NoError(t, err)
}

func TestAskEngineFailure(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Err: errors.New("model crashed")})
	ctx := context.Background()

	_, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "hi", SessionID: "s1"})
	assert.Equal(t, domain.KindInternal, kindOf(t, err))

	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, msgProcessing, de.Message)

	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func openAndRun(t *testing.T, svc *Service, ctx context.Context, sessionID string, sink domain.FragmentSink) (*Stream, error) {
	t.Helper()
	st, err := svc.OpenStream("u1", domain.QuestionRequest{Question: "Is it safe?", SessionID: sessionID}, ModeSSE)
	require.NoError(t, err)
	return st, st.Run(ctx, sink)
}

func TestStreamSuccess(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Tokens: []string{"Yes, ", "mostly."}})
	ctx := context.Background()
	rec := &helpers.FragmentRecorder{}

	st, err := openAndRun(t, svc, ctx, "", rec)
	require.NoError(t, err)

	assert.Equal(t, []domain.FragmentType{
		domain.FragmentSessionInit, domain.FragmentToken, domain.FragmentToken, domain.FragmentComplete,
	}, rec.Types())
	frags := rec.Fragments()
	assert.Equal(t, "Yes, ", frags[1].Content)
	assert.Equal(t, "mostly.", frags[2].Content)
	for _, f := range frags {
		assert.Equal(t, st.SessionID(), f.SessionID)
	}

	session, err := store.GetSession(ctx, st.SessionID())
	require.NoError(t, err)
	require.Len(t, session.History, 2)
	assert.Equal(t, "Yes, mostly.", session.History[1].Content)
}

func TestStreamEarlyFailure(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Err: errors.New("retriever down")})
	rec := &helpers.FragmentRecorder{}

	st, err := openAndRun(t, svc, context.Background(), "s1", rec)
	require.NoError(t, err)

	assert.Equal(t, []domain.FragmentType{domain.FragmentSessionInit, domain.FragmentError}, rec.Types())
	assert.Equal(t, msgProcessing, rec.Fragments()[1].Content)

	session, err := store.GetSession(context.Background(), st.SessionID())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestStreamMidStreamFailure(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{
		Tokens:    []string{"a", "b", "c"},
		MidErr:    errors.New("connection reset"),
		FailAfter: 2,
	})
	rec := &helpers.FragmentRecorder{}

	_, err := openAndRun(t, svc, context.Background(), "s1", rec)
	require.NoError(t, err)

	assert.Equal(t, []domain.FragmentType{
		domain.FragmentSessionInit, domain.FragmentToken, domain.FragmentToken, domain.FragmentError,
	}, rec.Types())

	session, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestStreamIdleTimeout(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Tokens: []string{"warming up"}, Block: true})
	svc.config.StreamIdleTimeout = 30 * time.Millisecond
	rec := &helpers.FragmentRecorder{}

	_, err := openAndRun(t, svc, context.Background(), "s1", rec)
	require.NoError(t, err)

	assert.Equal(t, []domain.FragmentType{
		domain.FragmentSessionInit, domain.FragmentToken, domain.FragmentError,
	}, rec.Types())
	assert.Equal(t, msgStreamIdle, rec.Fragments()[2].Content)

	session, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestStreamConsumerDisconnect(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Tokens: []string{"a", "b", "c"}})
	gone := errors.New("broken pipe")
	rec := &helpers.FragmentRecorder{FailAt: 3, FailErr: gone}

	_, err := openAndRun(t, svc, context.Background(), "s1", rec)
	assert.ErrorIs(t, err, gone)

	assert.Equal(t, []domain.FragmentType{domain.FragmentSessionInit, domain.FragmentToken}, rec.Types())

	session, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestStreamDisconnectOnCompleteKeepsExchange(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Tokens: []string{"a", "b"}})
	gone := errors.New("client gone")
	rec := &helpers.FragmentRecorder{FailAt: 4, FailErr: gone}

	_, err := openAndRun(t, svc, context.Background(), "s1", rec)
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, []domain.FragmentType{
		domain.FragmentSessionInit, domain.FragmentToken, domain.FragmentToken,
	}, rec.Types())

	// generation finished, so the exchange is committed even though the
	// complete fragment never reached the consumer
	session, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Exchanges(), 1)
}

func TestStreamContextCancelled(t *testing.T) {
	svc, store := newTestService(t, &helpers.StubEngine{Tokens: []string{"a"}, Block: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var types []domain.FragmentType
	sink := domain.SinkFunc(func(f domain.Fragment) error {
		types = append(types, f.Type)
		if f.Type == domain.FragmentToken {
			cancel()
		}
		return nil
	})

	_, err := openAndRun(t, svc, ctx, "s1", sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []domain.FragmentType{domain.FragmentSessionInit, domain.FragmentToken}, types)

	session, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestStreamRunsOnce(t *testing.T) {
	svc, _ := newTestService(t, &helpers.StubEngine{})
	st, err := openAndRun(t, svc, context.Background(), "", &helpers.FragmentRecorder{})
	require.NoError(t, err)

	err = st.Run(context.Background(), &helpers.FragmentRecorder{})
	assert.ErrorIs(t, err, domain.ErrStreamConsumed)
}

func TestOpenStreamRejectsBeforeStreaming(t *testing.T) {
	svc, _ := newTestService(t, &helpers.StubEngine{NotReady: true})

	_, err := svc.OpenStream("u1", domain.QuestionRequest{Question: "hi"}, ModeSSE)
	assert.Equal(t, domain.KindUnavailable, kindOf(t, err))

	_, err = svc.OpenStream("u1", domain.QuestionRequest{}, ModeSSE)
	assert.Equal(t, domain.KindValidation, kindOf(t, err))
}

func TestConcurrentStreamsOnSameSessionAreQueued(t *testing.T) {
	engine := &helpers.StubEngine{}
	svc, store := newTestService(t, engine)
	ctx := context.Background()

	unblock := make(chan struct{})
	firstStarted := make(chan struct{})
	var once sync.Once
	first := domain.SinkFunc(func(f domain.Fragment) error {
		if f.Type == domain.FragmentToken {
			once.Do(func() { close(firstStarted) })
			<-unblock
		}
		return nil
	})
	second := &helpers.FragmentRecorder{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := openAndRun(t, svc, ctx, "shared", first)
		assert.NoError(t, err)
	}()
	<-firstStarted
	go func() {
		defer wg.Done()
		_, err := openAndRun(t, svc, ctx, "shared", second)
		assert.NoError(t, err)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, second.Types(), "second stream must wait for the first")

	close(unblock)
	wg.Wait()

	assert.Equal(t, domain.FragmentComplete, second.Types()[len(second.Types())-1])
	histories := engine.Histories()
	require.Len(t, histories, 2)
	assert.Len(t, histories[1], 1, "second stream sees the first exchange")

	session, err := store.GetSession(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, session.History, 4)
	assert.Equal(t, 0, svc.locks.size())
}

func TestEmitterRejectsOutOfOrderFragments(t *testing.T) {
	rec := &helpers.FragmentRecorder{}
	em := newEmitter("s1", rec)

	assert.ErrorIs(t, em.send(domain.Fragment{Type: domain.FragmentToken}), errFragmentOrder)
	require.NoError(t, em.send(domain.Fragment{Type: domain.FragmentSessionInit}))
	assert.ErrorIs(t, em.send(domain.Fragment{Type: domain.FragmentSessionInit}), errFragmentOrder)
	require.NoError(t, em.send(domain.Fragment{Type: domain.FragmentToken, Content: "x"}))
	require.NoError(t, em.fail("boom"))
	assert.ErrorIs(t, em.send(domain.Fragment{Type: domain.FragmentComplete}), errFragmentOrder)
	assert.ErrorIs(t, em.send(domain.Fragment{Type: domain.FragmentToken}), errFragmentOrder)

	assert.Equal(t, []domain.FragmentType{
		domain.FragmentSessionInit, domain.FragmentToken, domain.FragmentError,
	}, rec.Types())
	for _, f := range rec.Fragments() {
		assert.Equal(t, "s1", f.SessionID)
	}
}

func TestClearSessionTwice(t *testing.T) {
	svc, _ := newTestService(t, &helpers.StubEngine{})
	ctx := context.Background()

	resp, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "hi"})
	require.NoError(t, err)

	cleared, err := svc.ClearSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, &domain.ClearSessionResponse{Success: true, Message: msgSessionCleared, SessionID: resp.SessionID}, cleared)

	_, err = svc.ClearSession(ctx, resp.SessionID)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))

	_, err = svc.ClearSession(ctx, " ")
	assert.Equal(t, domain.KindValidation, kindOf(t, err))
}

func TestHistory(t *testing.T) {
	svc, _ := newTestService(t, &helpers.StubEngine{})
	ctx := context.Background()

	_, err := svc.History(ctx, "missing")
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))

	resp, err := svc.Ask(ctx, "u1", domain.QuestionRequest{Question: "hi", SessionID: "s1"})
	require.NoError(t, err)

	hist, err := svc.History(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.True(t, hist.Success)
	require.Len(t, hist.History, 2)
	assert.Equal(t, "hi", hist.History[0].Content)
}

type stubModel struct {
	got domain.RecommendationInput
	err error
}

func (m *stubModel) Predict(_ context.Context, in domain.RecommendationInput) (*domain.Prediction, error) {
	m.got = in
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Prediction{Temperature: 80, Humidity: 20, SessionLength: 15}, nil
}

func ptr[T any](v T) *T { return &v }

func TestRecommendBackFillsFromProfile(t *testing.T) {
	model := &stubModel{}
	profiles := profile.StaticStore{
		"u1": {UserID: "u1", Age: ptr(42), Height: ptr(180.0), Weight: ptr(80.0), Goals: []string{"relaxation"}},
	}
	svc := New(Deps{Store: repository.NewMemoryStore(), Model: model, Profiles: profiles}, testConfig(), nil)

	resp, err := svc.Recommend(context.Background(), "u1", domain.RecommendationRequest{Weight: ptr(70.0)})
	require.NoError(t, err)

	assert.Equal(t, domain.RecommendationInput{
		Age:    42,
		Gender: domain.DefaultGender,
		Height: 1.8,
		Weight: 70,
		Goals:  []string{"relaxation"},
	}, model.got)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, []string{"relaxation"}, resp.GoalsUsed)
	assert.Equal(t, 80.0, resp.Temperature)
}

func TestRecommendErrors(t *testing.T) {
	ctx := context.Background()
	full := domain.RecommendationRequest{Age: ptr(30), Height: ptr(1.75), Weight: ptr(70.0), Goals: []string{"sleep"}}

	svc := New(Deps{Store: repository.NewMemoryStore()}, testConfig(), nil)
	_, err := svc.Recommend(ctx, "u1", full)
	assert.Equal(t, domain.KindUnavailable, kindOf(t, err))

	svc = New(Deps{Store: repository.NewMemoryStore(), Model: &stubModel{}}, testConfig(), nil)
	_, err = svc.Recommend(ctx, "nobody", domain.RecommendationRequest{Goals: []string{"sleep"}})
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	svc = New(Deps{Store: repository.NewMemoryStore(), Model: &stubModel{err: errors.New("nan")}}, testConfig(), nil)
	_, err = svc.Recommend(ctx, "u1", full)
	assert.Equal(t, domain.KindInternal, kindOf(t, err))
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, msgModelFailed, de.Message)
}

func TestRecommendWithBaselineModel(t *testing.T) {
	svc := New(Deps{Store: repository.NewMemoryStore(), Model: predictor.BaselineModel{}}, testConfig(), nil)

	resp, err := svc.Recommend(context.Background(), "u1", domain.RecommendationRequest{
		Age: ptr(30), Height: ptr(180.0), Weight: ptr(75.0), Goals: []string{"Muscle Recovery"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Prediction{Temperature: 85, Humidity: 15, SessionLength: 20}, resp.Prediction)
}

func TestSessionImages(t *testing.T) {
	svc := New(Deps{Store: repository.NewMemoryStore(), Images: objectstore.NewMemoryStore()}, testConfig(), nil)
	ctx := context.Background()

	up, err := svc.UploadSessionImage(ctx, "u1", "s1", "photo.jpg", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "sessions/u1/s1/photo.jpg", up.Path)

	obj, err := svc.SessionImage(ctx, "u1", "s1", "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, obj.Data)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	_, err = svc.SessionImage(ctx, "u2", "s1", "photo.jpg")
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))

	_, err = svc.UploadSessionImage(ctx, "u1", "s1", "../escape.jpg", []byte{1})
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	_, err = svc.UploadSessionImage(ctx, "u1", "s1", "big.jpg", make([]byte, 2048))
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	_, err = svc.UploadSessionImage(ctx, "u1", "s1", "empty.jpg", nil)
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	noStorage := New(Deps{Store: repository.NewMemoryStore()}, testConfig(), nil)
	_, err = noStorage.SessionImage(ctx, "u1", "s1", "photo.jpg")
	assert.Equal(t, domain.KindUnavailable, kindOf(t, err))
}

func TestFriendsReturnsCopy(t *testing.T) {
	svc := New(Deps{Store: repository.NewMemoryStore()}, testConfig(), nil)

	friends := svc.Friends()
	require.Len(t, friends, 3)
	assert.Equal(t, "Alex", friends[0].Name)

	friends[0].Name = "changed"
	assert.Equal(t, "Alex", svc.Friends()[0].Name)
}

func TestSessionLocks(t *testing.T) {
	locks := newSessionLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "a")
	require.NoError(t, err)

	other, err := locks.acquire(ctx, "b")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(waitCtx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Equal(t, 0, locks.size())
}
