package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ollysocial/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Shared in-memory mocks for the services package. Each service test file
// adds its own service-specific mocks on top of these.
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTx satisfies pgx.Tx for services that manage their own transactions.
// Only Commit and Rollback are ever called; anything else panics loudly.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

// ---
// mockLedger backs both the transfer and the redeemer credit interfaces.
// DeductTx is atomic with its balance check, like the conditional UPDATE it
// stands in for.

type mockLedger struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*models.UserCredit
	transactions []*models.CreditTransaction
}

func newMockLedger() *mockLedger {
	return &mockLedger{accounts: make(map[uuid.UUID]*models.UserCredit)}
}

func (m *mockLedger) seed(userID uuid.UUID, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = &models.UserCredit{ID: uuid.New(), UserID: userID, Balance: balance}
}

func (m *mockLedger) GetByUserID(_ context.Context, userID uuid.UUID) (*models.UserCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedger) GetByUserIDForUpdateTx(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*models.UserCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedger) EnsureAccountTx(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*models.UserCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		a = &models.UserCredit{ID: uuid.New(), UserID: userID}
		m.accounts[userID] = a
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedger) DeductTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok || a.Balance < amount {
		return 0, pgx.ErrNoRows
	}
	a.Balance -= amount
	return a.Balance, nil
}

func (m *mockLedger) AddTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		a = &models.UserCredit{ID: uuid.New(), UserID: userID}
		m.accounts[userID] = a
	}
	a.Balance += amount
	return a.Balance, nil
}

func (m *mockLedger) CreateTransactionTx(_ context.Context, _ pgx.Tx, t *models.CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.transactions = append(m.transactions, &cp)
	return nil
}

func (m *mockLedger) balance(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return 0
	}
	return a.Balance
}

func (m *mockLedger) byType(txType string) []*models.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CreditTransaction
	for _, t := range m.transactions {
		if t.Type == txType {
			out = append(out, t)
		}
	}
	return out
}

// ---

type mockUsers struct {
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
}

func newMockUsers(users ...*models.User) *mockUsers {
	m := &mockUsers{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
	for _, u := range users {
		m.byID[u.ID] = u
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.byID[id], nil
}

func (m *mockUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.byEmail[email], nil
}

// ---

type mockOrgs struct {
	roles map[uuid.UUID]map[uuid.UUID]string // orgID -> userID -> role
}

func newMockOrgs() *mockOrgs {
	return &mockOrgs{roles: make(map[uuid.UUID]map[uuid.UUID]string)}
}

func (m *mockOrgs) addMember(orgID, userID uuid.UUID, role string) {
	if m.roles[orgID] == nil {
		m.roles[orgID] = make(map[uuid.UUID]string)
	}
	m.roles[orgID][userID] = role
}

func (m *mockOrgs) MemberRole(_ context.Context, orgID, userID uuid.UUID) (string, error) {
	return m.roles[orgID][userID], nil
}

func (m *mockOrgs) FirstOwnedOrg(_ context.Context, userID uuid.UUID) (*models.Organization, error) {
	for orgID, members := range m.roles {
		if members[userID] == models.OrgRoleOwner {
			return &models.Organization{ID: orgID}, nil
		}
	}
	return nil, nil
}

// ---

type sentNotification struct {
	UserID  uuid.UUID
	Kind    string
	Title   string
	Message string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *mockNotifier) Notify(_ context.Context, userID uuid.UUID, kind, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserID: userID, Kind: kind, Title: title, Message: message})
	return nil
}

func (m *mockNotifier) titled(title string) []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentNotification
	for _, n := range m.sent {
		if n.Title == title {
			out = append(out, n)
		}
	}
	return out
}
