package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver

	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
)

// Store loads pipeline configuration from Postgres. It implements
// inbox.Store and is read-only: the pipeline never writes.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with pooled connections.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Ping verifies database reachability; used by the gateway readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadPipelineConfig fetches one inbox with its response agent and pipeline
// assignments resolved. Assignments keep their insertion order (position).
func (s *Store) LoadPipelineConfig(ctx context.Context, inboxID string) (*inbox.Inbox, error) {
	in, err := s.loadInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}

	if err := s.loadAssignments(ctx, in); err != nil {
		return nil, err
	}

	return in, nil
}

func (s *Store) loadInbox(ctx context.Context, inboxID string) (*inbox.Inbox, error) {
	const query = `
		SELECT id, account_id, is_active, COALESCE(platform_token, ''), COALESCE(platform_base_url, '')
		FROM inboxes
		WHERE id = $1`

	in := &inbox.Inbox{}
	err := s.db.QueryRowContext(ctx, query, inboxID).Scan(
		&in.ID,
		&in.AccountID,
		&in.Active,
		&in.Credential.Token,
		&in.Credential.BaseURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inbox %s: %w", inboxID, inbox.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load inbox %s: %w", inboxID, err)
	}

	return in, nil
}

func (s *Store) loadAssignments(ctx context.Context, in *inbox.Inbox) error {
	const query = `
		SELECT a.id, a.name, a.agent_type, a.prompt, COALESCE(a.context, ''),
		       COALESCE(a.provider, ''), COALESCE(a.model, ''), a.temperature, a.max_tokens,
		       COALESCE(a.credential_token, ''), COALESCE(a.credential_base_url, ''),
		       ia.is_response, ia.is_active, ia.priority, COALESCE(ia.config, '{}')
		FROM inbox_agents ia
		JOIN agents a ON a.id = ia.agent_id
		WHERE ia.inbox_id = $1
		ORDER BY ia.position`

	rows, err := s.db.QueryContext(ctx, query, in.ID)
	if err != nil {
		return fmt.Errorf("postgres: load assignments for inbox %s: %w", in.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			agent         inbox.Agent
			credToken     string
			credBaseURL   string
			isResponse    bool
			isActive      bool
			priority      int
			rawInvocation []byte
		)

		if err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.Type,
			&agent.Prompt,
			&agent.Context,
			&agent.Settings.Provider,
			&agent.Settings.Model,
			&agent.Settings.Temperature,
			&agent.Settings.MaxTokens,
			&credToken,
			&credBaseURL,
			&isResponse,
			&isActive,
			&priority,
			&rawInvocation,
		); err != nil {
			return fmt.Errorf("postgres: scan assignment for inbox %s: %w", in.ID, err)
		}

		if credToken != "" || credBaseURL != "" {
			agent.Credential = &platform.Credential{Token: credToken, BaseURL: credBaseURL}
		}

		var invocation inbox.InvocationConfig
		if err := json.Unmarshal(rawInvocation, &invocation); err != nil {
			return fmt.Errorf("postgres: parse invocation config for agent %s: %w", agent.ID, err)
		}

		if isResponse {
			in.ResponseAgent = &inbox.ResponseAssignment{Agent: &agent, Config: invocation}
			continue
		}

		in.Agents = append(in.Agents, inbox.Assignment{
			Agent:    &agent,
			Active:   isActive,
			Priority: priority,
			Config:   invocation,
		})
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: iterate assignments for inbox %s: %w", in.ID, err)
	}

	return nil
}
