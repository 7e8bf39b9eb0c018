package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
)

// Mock implementations

type mockPolicyRepo struct {
	policies map[string]*domain.GuildPolicy
	listErr  error
}

func newMockPolicyRepo(policies ...*domain.GuildPolicy) *mockPolicyRepo {
	m := &mockPolicyRepo{policies: make(map[string]*domain.GuildPolicy)}
	for _, p := range policies {
		m.policies[p.GuildID] = p
	}
	return m
}

func (m *mockPolicyRepo) Get(ctx context.Context, guildID string) (*domain.GuildPolicy, error) {
	if p, ok := m.policies[guildID]; ok {
		return p.Clone(), nil
	}
	return domain.DefaultGuildPolicy(guildID), nil
}

func (m *mockPolicyRepo) Save(ctx context.Context, policy *domain.GuildPolicy) error {
	m.policies[policy.GuildID] = policy.Clone()
	return nil
}

func (m *mockPolicyRepo) ListEnabled(ctx context.Context) ([]*domain.GuildPolicy, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*domain.GuildPolicy
	for _, p := range m.policies {
		if p.Enabled {
			result = append(result, p.Clone())
		}
	}
	return result, nil
}

func (m *mockPolicyRepo) Close() error {
	return nil
}

type setCall struct {
	ChannelID string
	Delay     int
	Reason    string
}

type mockChannelRepo struct {
	mu      sync.Mutex
	delays  map[string]int
	getErr  map[string]error
	setErr  map[string]error
	sets    []setCall
	calls   []string // Ordered log of report operations
	sent    []*domain.Report
	texts   []string
	sendErr error
	nextMsg int
}

func newMockChannelRepo() *mockChannelRepo {
	return &mockChannelRepo{
		delays: make(map[string]int),
		getErr: make(map[string]error),
		setErr: make(map[string]error),
	}
}

func (m *mockChannelRepo) GetDelay(ctx context.Context, channelID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[channelID]; err != nil {
		return 0, err
	}
	return m.delays[channelID], nil
}

func (m *mockChannelRepo) SetDelay(ctx context.Context, channelID string, delay int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setErr[channelID]; err != nil {
		return err
	}
	m.delays[channelID] = delay
	m.sets = append(m.sets, setCall{ChannelID: channelID, Delay: delay, Reason: reason})
	return nil
}

func (m *mockChannelRepo) SendReport(ctx context.Context, report *domain.Report) (domain.ReportHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "send:"+report.ChannelID)
	if m.sendErr != nil {
		return domain.ReportHandle{}, m.sendErr
	}
	m.nextMsg++
	m.sent = append(m.sent, report)
	return domain.ReportHandle{
		ChannelID: report.DestinationID,
		MessageID: fmt.Sprintf("msg-%d", m.nextMsg),
		ReportID:  report.ID,
	}, nil
}

func (m *mockChannelRepo) DisableReport(ctx context.Context, handle domain.ReportHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "disable:"+handle.MessageID)
	return nil
}

func (m *mockChannelRepo) SendText(ctx context.Context, channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockChannelRepo) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets)
}

type mockMirror struct {
	reports []*domain.Report
}

func (m *mockMirror) MirrorReport(ctx context.Context, report *domain.Report) error {
	m.reports = append(m.reports, report)
	return nil
}

type mockLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMockLock() *mockLock {
	return &mockLock{held: make(map[string]bool)}
}

func (m *mockLock) Acquire(ctx context.Context, channelID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[channelID] {
		return nil, domain.ErrSurveyRunning
	}
	m.held[channelID] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, channelID)
	}, nil
}
