package trade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/songswap/songswap/songswap/database/models"
)

// In-memory store implementations backing the engine tests.

type memTradeStore struct {
	mu     sync.Mutex
	trades map[string]*models.Trade
}

func newMemTradeStore() *memTradeStore {
	return &memTradeStore{trades: make(map[string]*models.Trade)}
}

func (s *memTradeStore) Create(_ context.Context, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[trade.Name]; ok {
		return fmt.Errorf("trade %s already exists", trade.Name)
	}
	s.trades[trade.Name] = trade
	return nil
}

func (s *memTradeStore) GetByName(_ context.Context, name string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trades[name], nil
}

func (s *memTradeStore) NameExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.trades[name]
	return ok, nil
}

func (s *memTradeStore) ActiveNames(_ context.Context, server snowflake.ID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name, trade := range s.trades {
		if trade.Server == server && trade.Phase != models.PhaseDone {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *memTradeStore) SetPhase(_ context.Context, name string, phase models.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trade, ok := s.trades[name]
	if !ok {
		return fmt.Errorf("trade not found")
	}
	trade.Phase = phase
	return nil
}

func (s *memTradeStore) SetEnd(_ context.Context, name string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trade, ok := s.trades[name]
	if !ok {
		return fmt.Errorf("trade not found")
	}
	trade.End = end
	return nil
}

func (s *memTradeStore) SetSong(_ context.Context, name string, from snowflake.ID, song models.Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trade, ok := s.trades[name]
	if !ok {
		return fmt.Errorf("trade not found")
	}
	for i := range trade.Edges {
		if trade.Edges[i].From == from {
			trade.Edges[i].Song = &song
			return nil
		}
	}
	return fmt.Errorf("edge not found")
}

func (s *memTradeStore) SetResponse(_ context.Context, name string, to snowflake.ID, response models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trade, ok := s.trades[name]
	if !ok {
		return fmt.Errorf("trade not found")
	}
	for i := range trade.Edges {
		if trade.Edges[i].To == to {
			trade.Edges[i].Response = &response
			return nil
		}
	}
	return fmt.Errorf("edge not found")
}

type memServerStore struct {
	mu      sync.Mutex
	servers map[snowflake.ID]*models.Server
}

func newMemServerStore(servers ...*models.Server) *memServerStore {
	s := &memServerStore{servers: make(map[snowflake.ID]*models.Server)}
	for _, server := range servers {
		s.servers[server.UID] = server
	}
	return s
}

func (s *memServerStore) GetByUID(_ context.Context, uid snowflake.ID) (*models.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servers[uid], nil
}

func (s *memServerStore) GetUser(_ context.Context, serverUID, userUID snowflake.ID) (*models.ServerUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	server, ok := s.servers[serverUID]
	if !ok {
		return nil, nil
	}
	return server.User(userUID), nil
}

type memUserStore struct {
	mu    sync.Mutex
	users map[snowflake.ID]*models.User
}

func newMemUserStore(users ...*models.User) *memUserStore {
	s := &memUserStore{users: make(map[snowflake.ID]*models.User)}
	for _, user := range users {
		s.users[user.UID] = user
	}
	return s
}

func (s *memUserStore) GetByUID(_ context.Context, uid snowflake.ID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[uid], nil
}

type memEventStore struct {
	mu     sync.Mutex
	events []models.Event
}

func newMemEventStore() *memEventStore {
	return &memEventStore{}
}

func (s *memEventStore) CreateMany(_ context.Context, events []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *memEventStore) ListAll(_ context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *memEventStore) ListByTrade(_ context.Context, tradeName string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, ev := range s.events {
		if ev.TradeName == tradeName {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memEventStore) Delete(_ context.Context, tradeName string, kind models.EventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ev := range s.events {
		if ev.TradeName == tradeName && ev.Kind == kind {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memEventStore) DeleteByTrade(_ context.Context, tradeName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []models.Event
	var deleted int64
	for _, ev := range s.events {
		if ev.TradeName == tradeName {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

func (s *memEventStore) Reschedule(_ context.Context, tradeName string, kind models.EventKind, dueAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ev := range s.events {
		if ev.TradeName == tradeName && ev.Kind == kind {
			s.events[i].DueAt = dueAt
		}
	}
	return nil
}

func (s *memEventStore) get(tradeName string, kind models.EventKind) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.TradeName == tradeName && ev.Kind == kind {
			return ev, true
		}
	}
	return models.Event{}, false
}

func (s *memEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type sentMessage struct {
	target  snowflake.ID
	message discord.MessageCreate
}

// recordingNotifier captures everything the engine tries to send.
type recordingNotifier struct {
	mu       sync.Mutex
	dms      []sentMessage
	channels []sentMessage
	failDMs  bool
}

func (n *recordingNotifier) NotifyUser(_ context.Context, user snowflake.ID, message discord.MessageCreate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failDMs {
		return fmt.Errorf("dm delivery disabled")
	}
	n.dms = append(n.dms, sentMessage{target: user, message: message})
	return nil
}

func (n *recordingNotifier) NotifyChannel(_ context.Context, channel snowflake.ID, message discord.MessageCreate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, sentMessage{target: channel, message: message})
	return nil
}

func (n *recordingNotifier) dmCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dms)
}

func (n *recordingNotifier) dmsTo(user snowflake.ID) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, msg := range n.dms {
		if msg.target == user {
			out = append(out, msg)
		}
	}
	return out
}

type fakePaster struct {
	mu      sync.Mutex
	uploads map[string]string
}

func (p *fakePaster) Put(_ context.Context, name, content string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploads == nil {
		p.uploads = make(map[string]string)
	}
	p.uploads[name] = content
	return "https://paste.example/" + name, nil
}

// testEnv wires a manager over in-memory stores with one server whose users
// are all opted in.
type testEnv struct {
	manager  *Manager
	trades   *memTradeStore
	servers  *memServerStore
	users    *memUserStore
	events   *memEventStore
	notifier *recordingNotifier
	paste    *fakePaster
	server   *models.Server
}

func newTestEnv(userCount int, withChannel bool) *testEnv {
	server := &models.Server{
		UID:            snowflake.ID(1000),
		Name:           "testserver",
		ReminderPeriod: 60,
		CommentPeriod:  240,
	}
	if withChannel {
		server.AnnouncementsChannel = snowflake.ID(2000)
	}

	var profiles []*models.User
	for i := 0; i < userCount; i++ {
		uid := snowflake.ID(1 + i)
		server.Users = append(server.Users, models.ServerUser{UID: uid, OptedIn: true})
		profiles = append(profiles, &models.User{
			UID:         uid,
			Name:        fmt.Sprintf("user%d", i+1),
			LikedGenres: "jazz",
		})
	}

	env := &testEnv{
		trades:   newMemTradeStore(),
		servers:  newMemServerStore(server),
		users:    newMemUserStore(profiles...),
		events:   newMemEventStore(),
		notifier: &recordingNotifier{},
		paste:    &fakePaster{},
		server:   server,
	}
	env.manager = NewManager(env.trades, env.servers, env.users, env.events, env.notifier, env.paste)
	return env
}

func (env *testEnv) startTrade(ctx context.Context, durationDays int) (*models.Trade, error) {
	return env.manager.StartTrade(ctx, env.server.UID, durationDays)
}

// testTrade builds a minimal two-person trade in phase 1.
func testTrade(name string) *models.Trade {
	now := time.Now().UTC()
	return &models.Trade{
		Name:   name,
		Server: snowflake.ID(1000),
		Users:  []snowflake.ID{1, 2},
		Edges: []models.Edge{
			{From: 1, To: 2},
			{From: 2, To: 1},
		},
		Start: StartOfDay(now),
		End:   EndOfDay(now.AddDate(0, 0, 3)),
		Phase: models.Phase1,
	}
}

func (env *testEnv) eventFor(tradeName string, kind models.EventKind) models.Event {
	ev, ok := env.events.get(tradeName, kind)
	if !ok {
		return models.Event{TradeName: tradeName, Server: env.server.UID, Kind: kind}
	}
	return ev
}
