package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		provider_call_id TEXT UNIQUE NOT NULL,
		tenant_id TEXT NOT NULL,
		caller_phone TEXT,
		agent_type TEXT,
		status TEXT NOT NULL,
		recording_url TEXT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		duration_seconds INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_calls_tenant ON calls(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_calls_status ON calls(status);
	CREATE INDEX IF NOT EXISTS idx_calls_started ON calls(started_at);

	CREATE TABLE IF NOT EXISTS call_transcripts (
		id TEXT PRIMARY KEY,
		call_id TEXT UNIQUE NOT NULL,
		turns TEXT,
		full_text TEXT,
		word_count INTEGER DEFAULT 0,
		turn_count INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (call_id) REFERENCES calls(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS call_analytics (
		id TEXT PRIMARY KEY,
		call_id TEXT UNIQUE NOT NULL,
		overall_sentiment TEXT,
		sentiment_score REAL,
		primary_category TEXT,
		secondary_categories TEXT,
		tags TEXT,
		resolution_status TEXT,
		resolution_notes TEXT,
		satisfaction_predicted REAL,
		agent_performance_score REAL,
		customer_intent TEXT,
		key_topics TEXT,
		action_items TEXT,
		knowledge_gaps TEXT,
		call_summary TEXT,
		one_line_summary TEXT,
		urgency_level TEXT,
		customer_effort_score REAL,
		customer_had_to_repeat INTEGER DEFAULT 0,
		transfer_count INTEGER DEFAULT 0,
		was_escalated INTEGER DEFAULT 0,
		escalation_reason TEXT,
		degraded INTEGER DEFAULT 0,
		analysis_model TEXT,
		analysis_version TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (call_id) REFERENCES calls(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_category ON call_analytics(primary_category);
	CREATE INDEX IF NOT EXISTS idx_analytics_sentiment ON call_analytics(overall_sentiment);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		call_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT,
		customer_name TEXT,
		customer_email TEXT,
		customer_phone TEXT,
		sentiment_score REAL,
		resolution_status TEXT,
		satisfaction_predicted REAL,
		action_items TEXT,
		key_topics TEXT,
		notes TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		resolved_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_tenant ON tickets(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	CREATE INDEX IF NOT EXISTS idx_tickets_priority ON tickets(priority);
	CREATE INDEX IF NOT EXISTS idx_tickets_call ON tickets(call_id);

	CREATE TABLE IF NOT EXISTS customer_profiles (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT,
		email TEXT,
		phone TEXT,
		account_id TEXT,
		company TEXT,
		customer_type TEXT,
		communication_style TEXT,
		language_preference TEXT,
		total_calls INTEGER DEFAULT 0,
		total_duration_seconds INTEGER DEFAULT 0,
		first_call_at INTEGER,
		last_call_at INTEGER,
		avg_satisfaction REAL DEFAULT 0,
		avg_sentiment REAL DEFAULT 0,
		churn_risk_level TEXT,
		churn_risk_score REAL DEFAULT 0,
		churn_risk_factors TEXT,
		pain_points TEXT,
		feature_requests TEXT,
		complaints TEXT,
		compliments TEXT,
		products_mentioned TEXT,
		competitor_mentions TEXT,
		special_notes TEXT,
		requires_follow_up INTEGER DEFAULT 0,
		follow_up_reason TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_tenant_email ON customer_profiles(tenant_id, email);
	CREATE INDEX IF NOT EXISTS idx_profiles_tenant_phone ON customer_profiles(tenant_id, phone);
	CREATE INDEX IF NOT EXISTS idx_profiles_tenant_account ON customer_profiles(tenant_id, account_id);

	CREATE TABLE IF NOT EXISTS feedback_aggregates (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		feedback_type TEXT NOT NULL,
		feedback_text TEXT NOT NULL,
		category TEXT,
		occurrence_count INTEGER DEFAULT 1,
		first_mentioned_at INTEGER NOT NULL,
		last_mentioned_at INTEGER NOT NULL,
		call_ids TEXT,
		UNIQUE (tenant_id, feedback_type, feedback_text)
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_tenant_type ON feedback_aggregates(tenant_id, feedback_type);
	CREATE INDEX IF NOT EXISTS idx_feedback_count ON feedback_aggregates(occurrence_count);

	CREATE TABLE IF NOT EXISTS daily_rollups (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		tenant_id TEXT NOT NULL DEFAULT '',
		total_calls INTEGER DEFAULT 0,
		completed_calls INTEGER DEFAULT 0,
		resolved_calls INTEGER DEFAULT 0,
		escalated_calls INTEGER DEFAULT 0,
		total_duration_seconds INTEGER DEFAULT 0,
		avg_duration_seconds REAL DEFAULT 0,
		resolution_rate REAL DEFAULT 0,
		positive_calls INTEGER DEFAULT 0,
		neutral_calls INTEGER DEFAULT 0,
		negative_calls INTEGER DEFAULT 0,
		avg_sentiment_score REAL DEFAULT 0,
		category_breakdown TEXT,
		UNIQUE (date, tenant_id)
	);
	CREATE INDEX IF NOT EXISTS idx_rollups_date ON daily_rollups(date);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// UpsertCall inserts a call or refreshes its provider-owned fields when the
// provider call id was seen before.
func (c *Client) UpsertCall(ctx context.Context, call *models.CallRecord) error {
	query := `
		INSERT INTO calls (id, provider_call_id, tenant_id, caller_phone, agent_type, status, recording_url, started_at, ended_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_call_id) DO UPDATE SET
			status = excluded.status,
			recording_url = excluded.recording_url,
			ended_at = excluded.ended_at,
			duration_seconds = excluded.duration_seconds
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		call.ID,
		call.ProviderCallID,
		call.TenantID,
		call.CallerPhone,
		call.AgentType,
		call.Status,
		call.RecordingURL,
		call.StartedAt.Unix(),
		nullableUnix(call.EndedAt),
		call.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert call: %w", err)
	}

	logger.Debug("Call upserted", zap.String("call_id", call.ID), zap.String("provider_call_id", call.ProviderCallID))
	return nil
}

const callColumns = `id, provider_call_id, tenant_id, caller_phone, agent_type, status, recording_url, started_at, ended_at, duration_seconds`

func (c *Client) GetCall(ctx context.Context, id string) (*models.CallRecord, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	return scanCall(row)
}

func (c *Client) GetCallByProviderID(ctx context.Context, providerCallID string) (*models.CallRecord, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+callColumns+` FROM calls WHERE provider_call_id = ?`, providerCallID)
	return scanCall(row)
}

func scanCall(row *sql.Row) (*models.CallRecord, error) {
	var call models.CallRecord
	var startedAt int64
	var endedAt sql.NullInt64

	err := row.Scan(
		&call.ID,
		&call.ProviderCallID,
		&call.TenantID,
		&call.CallerPhone,
		&call.AgentType,
		&call.Status,
		&call.RecordingURL,
		&startedAt,
		&endedAt,
		&call.DurationSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	call.StartedAt = time.Unix(startedAt, 0).UTC()
	call.EndedAt = unixPtr(endedAt)
	return &call, nil
}

func (c *Client) ListCalls(ctx context.Context, tenantID, status string, limit, offset int) ([]models.CallRecord, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []models.CallRecord
	for rows.Next() {
		var call models.CallRecord
		var startedAt int64
		var endedAt sql.NullInt64

		err := rows.Scan(
			&call.ID,
			&call.ProviderCallID,
			&call.TenantID,
			&call.CallerPhone,
			&call.AgentType,
			&call.Status,
			&call.RecordingURL,
			&startedAt,
			&endedAt,
			&call.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}

		call.StartedAt = time.Unix(startedAt, 0).UTC()
		call.EndedAt = unixPtr(endedAt)
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// ListCallsWithoutAnalytics returns completed calls that have a transcript
// but no analytics snapshot yet, oldest first. tenantID narrows the scan
// when non-empty.
func (c *Client) ListCallsWithoutAnalytics(ctx context.Context, tenantID string, limit int) ([]models.CallRecord, error) {
	query := `
		SELECT c.id, c.provider_call_id, c.tenant_id, c.caller_phone, c.agent_type,
			c.status, c.recording_url, c.started_at, c.ended_at, c.duration_seconds
		FROM calls c
		JOIN call_transcripts t ON t.call_id = c.id
		LEFT JOIN call_analytics a ON a.call_id = c.id
		WHERE a.id IS NULL AND c.status = ?
	`
	args := []any{models.CallStatusCompleted}
	if tenantID != "" {
		query += ` AND c.tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY c.started_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed calls: %w", err)
	}
	defer rows.Close()

	var calls []models.CallRecord
	for rows.Next() {
		var call models.CallRecord
		var startedAt int64
		var endedAt sql.NullInt64

		err := rows.Scan(
			&call.ID,
			&call.ProviderCallID,
			&call.TenantID,
			&call.CallerPhone,
			&call.AgentType,
			&call.Status,
			&call.RecordingURL,
			&startedAt,
			&endedAt,
			&call.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}

		call.StartedAt = time.Unix(startedAt, 0).UTC()
		call.EndedAt = unixPtr(endedAt)
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

func (c *Client) SaveTranscript(ctx context.Context, tr *models.Transcript) error {
	query := `
		INSERT INTO call_transcripts (id, call_id, turns, full_text, word_count, turn_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET
			turns = excluded.turns,
			full_text = excluded.full_text,
			word_count = excluded.word_count,
			turn_count = excluded.turn_count
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		tr.ID,
		tr.CallID,
		marshalJSON(tr.Turns),
		tr.FullText,
		tr.WordCount,
		tr.TurnCount,
		tr.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (c *Client) GetTranscript(ctx context.Context, callID string) (*models.Transcript, error) {
	query := `SELECT id, call_id, turns, full_text, word_count, turn_count, created_at FROM call_transcripts WHERE call_id = ?`

	var tr models.Transcript
	var turns string
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, callID).Scan(
		&tr.ID,
		&tr.CallID,
		&turns,
		&tr.FullText,
		&tr.WordCount,
		&tr.TurnCount,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}

	unmarshalJSON(turns, &tr.Turns)
	tr.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &tr, nil
}

func (c *Client) SaveAnalytics(ctx context.Context, a *models.CallAnalytics) error {
	query := `
		INSERT INTO call_analytics (
			id, call_id, overall_sentiment, sentiment_score, primary_category,
			secondary_categories, tags, resolution_status, resolution_notes,
			satisfaction_predicted, agent_performance_score, customer_intent,
			key_topics, action_items, knowledge_gaps, call_summary,
			one_line_summary, urgency_level, customer_effort_score,
			customer_had_to_repeat, transfer_count, was_escalated,
			escalation_reason, degraded, analysis_model, analysis_version, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET
			overall_sentiment = excluded.overall_sentiment,
			sentiment_score = excluded.sentiment_score,
			primary_category = excluded.primary_category,
			secondary_categories = excluded.secondary_categories,
			tags = excluded.tags,
			resolution_status = excluded.resolution_status,
			resolution_notes = excluded.resolution_notes,
			satisfaction_predicted = excluded.satisfaction_predicted,
			agent_performance_score = excluded.agent_performance_score,
			customer_intent = excluded.customer_intent,
			key_topics = excluded.key_topics,
			action_items = excluded.action_items,
			knowledge_gaps = excluded.knowledge_gaps,
			call_summary = excluded.call_summary,
			one_line_summary = excluded.one_line_summary,
			urgency_level = excluded.urgency_level,
			customer_effort_score = excluded.customer_effort_score,
			customer_had_to_repeat = excluded.customer_had_to_repeat,
			transfer_count = excluded.transfer_count,
			was_escalated = excluded.was_escalated,
			escalation_reason = excluded.escalation_reason,
			degraded = excluded.degraded,
			analysis_model = excluded.analysis_model,
			analysis_version = excluded.analysis_version,
			created_at = excluded.created_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.CallID,
		a.OverallSentiment,
		a.SentimentScore,
		a.PrimaryCategory,
		marshalJSON(a.SecondaryCategories),
		marshalJSON(a.Tags),
		a.ResolutionStatus,
		a.ResolutionNotes,
		a.SatisfactionPredicted,
		a.AgentPerformanceScore,
		a.CustomerIntent,
		marshalJSON(a.KeyTopics),
		marshalJSON(a.ActionItems),
		marshalJSON(a.KnowledgeGaps),
		a.CallSummary,
		a.OneLineSummary,
		a.UrgencyLevel,
		a.CustomerEffortScore,
		boolToInt(a.CustomerHadToRepeat),
		a.TransferCount,
		boolToInt(a.WasEscalated),
		a.EscalationReason,
		boolToInt(a.Degraded),
		a.AnalysisModel,
		a.AnalysisVersion,
		a.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save analytics: %w", err)
	}

	logger.Debug("Analytics snapshot saved", zap.String("call_id", a.CallID), zap.Bool("degraded", a.Degraded))
	return nil
}

func (c *Client) GetAnalyticsByCallID(ctx context.Context, callID string) (*models.CallAnalytics, error) {
	query := `
		SELECT id, call_id, overall_sentiment, sentiment_score, primary_category,
			secondary_categories, tags, resolution_status, resolution_notes,
			satisfaction_predicted, agent_performance_score, customer_intent,
			key_topics, action_items, knowledge_gaps, call_summary,
			one_line_summary, urgency_level, customer_effort_score,
			customer_had_to_repeat, transfer_count, was_escalated,
			escalation_reason, degraded, analysis_model, analysis_version, created_at
		FROM call_analytics WHERE call_id = ?
	`

	var a models.CallAnalytics
	var secondary, tags, topics, items, gaps string
	var hadToRepeat, escalated, degraded int
	var createdAt int64

	err := c.db.QueryRowContext(ctx, query, callID).Scan(
		&a.ID,
		&a.CallID,
		&a.OverallSentiment,
		&a.SentimentScore,
		&a.PrimaryCategory,
		&secondary,
		&tags,
		&a.ResolutionStatus,
		&a.ResolutionNotes,
		&a.SatisfactionPredicted,
		&a.AgentPerformanceScore,
		&a.CustomerIntent,
		&topics,
		&items,
		&gaps,
		&a.CallSummary,
		&a.OneLineSummary,
		&a.UrgencyLevel,
		&a.CustomerEffortScore,
		&hadToRepeat,
		&a.TransferCount,
		&escalated,
		&a.EscalationReason,
		&degraded,
		&a.AnalysisModel,
		&a.AnalysisVersion,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}

	unmarshalJSON(secondary, &a.SecondaryCategories)
	unmarshalJSON(tags, &a.Tags)
	unmarshalJSON(topics, &a.KeyTopics)
	unmarshalJSON(items, &a.ActionItems)
	unmarshalJSON(gaps, &a.KnowledgeGaps)
	a.CustomerHadToRepeat = hadToRepeat != 0
	a.WasEscalated = escalated != 0
	a.Degraded = degraded != 0
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

// DeleteAnalysisArtifacts removes the analytics snapshot and tickets for a
// call so it can be reprocessed. Aggregates are left alone.
func (c *Client) DeleteAnalysisArtifacts(ctx context.Context, callID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM call_analytics WHERE call_id = ?`, callID); err != nil {
		return fmt.Errorf("failed to delete analytics: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM tickets WHERE call_id = ?`, callID); err != nil {
		return fmt.Errorf("failed to delete tickets: %w", err)
	}
	logger.Debug("Analysis artifacts deleted", zap.String("call_id", callID))
	return nil
}

func (c *Client) SaveTicket(ctx context.Context, t *models.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, call_id, tenant_id, title, description, category, priority,
			status, source, customer_name, customer_email, customer_phone,
			sentiment_score, resolution_status, satisfaction_predicted,
			action_items, key_topics, notes, created_at, updated_at, resolved_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			priority = excluded.priority,
			status = excluded.status,
			customer_name = excluded.customer_name,
			customer_email = excluded.customer_email,
			customer_phone = excluded.customer_phone,
			action_items = excluded.action_items,
			key_topics = excluded.key_topics,
			notes = excluded.notes,
			updated_at = excluded.updated_at,
			resolved_at = excluded.resolved_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.CallID,
		t.TenantID,
		t.Title,
		t.Description,
		t.Category,
		t.Priority,
		t.Status,
		t.Source,
		t.CustomerName,
		t.CustomerEmail,
		t.CustomerPhone,
		t.SentimentScore,
		t.ResolutionStatus,
		t.SatisfactionPredicted,
		marshalJSON(t.ActionItems),
		marshalJSON(t.KeyTopics),
		marshalJSON(t.Notes),
		t.CreatedAt.Unix(),
		t.UpdatedAt.Unix(),
		nullableUnix(t.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	logger.Debug("Ticket saved",
		zap.String("ticket_id", t.ID),
		zap.String("priority", t.Priority),
		zap.String("status", t.Status),
	)
	return nil
}

const ticketColumns = `id, call_id, tenant_id, title, description, category, priority,
	status, source, customer_name, customer_email, customer_phone,
	sentiment_score, resolution_status, satisfaction_predicted,
	action_items, key_topics, notes, created_at, updated_at, resolved_at`

func (c *Client) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	ticket, err := scanTicket(rows)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (c *Client) ListTickets(ctx context.Context, tenantID, status, priority, category string, limit, offset int) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if priority != "" {
		query += ` AND priority = ?`
		args = append(args, priority)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}

	return tickets, rows.Err()
}

func scanTicket(rows *sql.Rows) (*models.Ticket, error) {
	var t models.Ticket
	var actionItems, keyTopics, notes string
	var createdAt, updatedAt int64
	var resolvedAt sql.NullInt64

	err := rows.Scan(
		&t.ID,
		&t.CallID,
		&t.TenantID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.Priority,
		&t.Status,
		&t.Source,
		&t.CustomerName,
		&t.CustomerEmail,
		&t.CustomerPhone,
		&t.SentimentScore,
		&t.ResolutionStatus,
		&t.SatisfactionPredicted,
		&actionItems,
		&keyTopics,
		&notes,
		&createdAt,
		&updatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}

	unmarshalJSON(actionItems, &t.ActionItems)
	unmarshalJSON(keyTopics, &t.KeyTopics)
	unmarshalJSON(notes, &t.Notes)
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	t.ResolvedAt = unixPtr(resolvedAt)
	return &t, nil
}

// TicketStats returns ticket counts grouped by status, plus priority and
// category breakdowns of the open queue (open and in_progress tickets).
func (c *Client) TicketStats(ctx context.Context, tenantID string) (map[string]int, map[string]int, map[string]int, error) {
	byStatus, err := c.countTickets(ctx, `SELECT status, COUNT(*) FROM tickets WHERE tenant_id = ? GROUP BY status`, tenantID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to count tickets by status: %w", err)
	}

	byPriority, err := c.countTickets(ctx,
		`SELECT priority, COUNT(*) FROM tickets WHERE tenant_id = ? AND status IN ('open', 'in_progress') GROUP BY priority`, tenantID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to count tickets by priority: %w", err)
	}

	byCategory, err := c.countTickets(ctx,
		`SELECT category, COUNT(*) FROM tickets WHERE tenant_id = ? AND status IN ('open', 'in_progress') GROUP BY category`, tenantID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to count tickets by category: %w", err)
	}

	return byStatus, byPriority, byCategory, nil
}

func (c *Client) countTickets(ctx context.Context, query, tenantID string) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func (c *Client) SaveProfile(ctx context.Context, p *models.CustomerProfile) error {
	query := `
		INSERT INTO customer_profiles (
			id, tenant_id, name, email, phone, account_id, company,
			customer_type, communication_style, language_preference,
			total_calls, total_duration_seconds, first_call_at, last_call_at,
			avg_satisfaction, avg_sentiment, churn_risk_level, churn_risk_score,
			churn_risk_factors, pain_points, feature_requests, complaints,
			compliments, products_mentioned, competitor_mentions, special_notes,
			requires_follow_up, follow_up_reason, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			account_id = excluded.account_id,
			company = excluded.company,
			customer_type = excluded.customer_type,
			communication_style = excluded.communication_style,
			language_preference = excluded.language_preference,
			total_calls = excluded.total_calls,
			total_duration_seconds = excluded.total_duration_seconds,
			first_call_at = excluded.first_call_at,
			last_call_at = excluded.last_call_at,
			avg_satisfaction = excluded.avg_satisfaction,
			avg_sentiment = excluded.avg_sentiment,
			churn_risk_level = excluded.churn_risk_level,
			churn_risk_score = excluded.churn_risk_score,
			churn_risk_factors = excluded.churn_risk_factors,
			pain_points = excluded.pain_points,
			feature_requests = excluded.feature_requests,
			complaints = excluded.complaints,
			compliments = excluded.compliments,
			products_mentioned = excluded.products_mentioned,
			competitor_mentions = excluded.competitor_mentions,
			special_notes = excluded.special_notes,
			requires_follow_up = excluded.requires_follow_up,
			follow_up_reason = excluded.follow_up_reason,
			updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.TenantID,
		p.Name,
		p.Email,
		p.Phone,
		p.AccountID,
		p.Company,
		p.CustomerType,
		p.CommunicationStyle,
		p.LanguagePreference,
		p.TotalCalls,
		p.TotalDurationSeconds,
		nullableUnix(p.FirstCallAt),
		nullableUnix(p.LastCallAt),
		p.AvgSatisfaction,
		p.AvgSentiment,
		p.ChurnRiskLevel,
		p.ChurnRiskScore,
		marshalJSON(p.ChurnRiskFactors),
		marshalJSON(p.PainPoints),
		marshalJSON(p.FeatureRequests),
		marshalJSON(p.Complaints),
		marshalJSON(p.Compliments),
		marshalJSON(p.ProductsMentioned),
		marshalJSON(p.CompetitorMentions),
		marshalJSON(p.SpecialNotes),
		boolToInt(p.RequiresFollowUp),
		p.FollowUpReason,
		p.CreatedAt.Unix(),
		p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

const profileColumns = `id, tenant_id, name, email, phone, account_id, company,
	customer_type, communication_style, language_preference,
	total_calls, total_duration_seconds, first_call_at, last_call_at,
	avg_satisfaction, avg_sentiment, churn_risk_level, churn_risk_score,
	churn_risk_factors, pain_points, feature_requests, complaints,
	compliments, products_mentioned, competitor_mentions, special_notes,
	requires_follow_up, follow_up_reason, created_at, updated_at`

func (c *Client) GetProfile(ctx context.Context, id string) (*models.CustomerProfile, error) {
	return c.findProfile(ctx, `SELECT `+profileColumns+` FROM customer_profiles WHERE id = ?`, id)
}

func (c *Client) FindProfileByEmail(ctx context.Context, tenantID, email string) (*models.CustomerProfile, error) {
	return c.findProfile(ctx, `SELECT `+profileColumns+` FROM customer_profiles WHERE tenant_id = ? AND email = ?`, tenantID, email)
}

func (c *Client) FindProfileByPhone(ctx context.Context, tenantID, phone string) (*models.CustomerProfile, error) {
	return c.findProfile(ctx, `SELECT `+profileColumns+` FROM customer_profiles WHERE tenant_id = ? AND phone = ?`, tenantID, phone)
}

func (c *Client) FindProfileByAccountID(ctx context.Context, tenantID, accountID string) (*models.CustomerProfile, error) {
	return c.findProfile(ctx, `SELECT `+profileColumns+` FROM customer_profiles WHERE tenant_id = ? AND account_id = ?`, tenantID, accountID)
}

func (c *Client) findProfile(ctx context.Context, query string, args ...any) (*models.CustomerProfile, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanProfile(rows)
}

func (c *Client) ListProfiles(ctx context.Context, tenantID string, limit, offset int) ([]models.CustomerProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM customer_profiles WHERE tenant_id = ? ORDER BY last_call_at DESC LIMIT ? OFFSET ?`

	rows, err := c.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.CustomerProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	return profiles, rows.Err()
}

func scanProfile(rows *sql.Rows) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	var riskFactors, painPoints, featureRequests, complaints string
	var compliments, products, competitors, notes string
	var firstCallAt, lastCallAt sql.NullInt64
	var requiresFollowUp int
	var createdAt, updatedAt int64

	err := rows.Scan(
		&p.ID,
		&p.TenantID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.AccountID,
		&p.Company,
		&p.CustomerType,
		&p.CommunicationStyle,
		&p.LanguagePreference,
		&p.TotalCalls,
		&p.TotalDurationSeconds,
		&firstCallAt,
		&lastCallAt,
		&p.AvgSatisfaction,
		&p.AvgSentiment,
		&p.ChurnRiskLevel,
		&p.ChurnRiskScore,
		&riskFactors,
		&painPoints,
		&featureRequests,
		&complaints,
		&compliments,
		&products,
		&competitors,
		&notes,
		&requiresFollowUp,
		&p.FollowUpReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	unmarshalJSON(riskFactors, &p.ChurnRiskFactors)
	unmarshalJSON(painPoints, &p.PainPoints)
	unmarshalJSON(featureRequests, &p.FeatureRequests)
	unmarshalJSON(complaints, &p.Complaints)
	unmarshalJSON(compliments, &p.Compliments)
	unmarshalJSON(products, &p.ProductsMentioned)
	unmarshalJSON(competitors, &p.CompetitorMentions)
	unmarshalJSON(notes, &p.SpecialNotes)
	p.FirstCallAt = unixPtr(firstCallAt)
	p.LastCallAt = unixPtr(lastCallAt)
	p.RequiresFollowUp = requiresFollowUp != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

func (c *Client) FindFeedback(ctx context.Context, tenantID, feedbackType, text string) (*models.FeedbackAggregate, error) {
	query := `
		SELECT id, tenant_id, feedback_type, feedback_text, category,
			occurrence_count, first_mentioned_at, last_mentioned_at, call_ids
		FROM feedback_aggregates
		WHERE tenant_id = ? AND feedback_type = ? AND feedback_text = ?
	`

	var fb models.FeedbackAggregate
	var callIDs string
	var first, last int64

	err := c.db.QueryRowContext(ctx, query, tenantID, feedbackType, text).Scan(
		&fb.ID,
		&fb.TenantID,
		&fb.FeedbackType,
		&fb.FeedbackText,
		&fb.Category,
		&fb.OccurrenceCount,
		&first,
		&last,
		&callIDs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find feedback: %w", err)
	}

	unmarshalJSON(callIDs, &fb.CallIDs)
	fb.FirstMentionedAt = time.Unix(first, 0).UTC()
	fb.LastMentionedAt = time.Unix(last, 0).UTC()
	return &fb, nil
}

func (c *Client) SaveFeedback(ctx context.Context, fb *models.FeedbackAggregate) error {
	query := `
		INSERT INTO feedback_aggregates (
			id, tenant_id, feedback_type, feedback_text, category,
			occurrence_count, first_mentioned_at, last_mentioned_at, call_ids
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, feedback_type, feedback_text) DO UPDATE SET
			category = excluded.category,
			occurrence_count = excluded.occurrence_count,
			last_mentioned_at = excluded.last_mentioned_at,
			call_ids = excluded.call_ids
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		fb.ID,
		fb.TenantID,
		fb.FeedbackType,
		fb.FeedbackText,
		fb.Category,
		fb.OccurrenceCount,
		fb.FirstMentionedAt.Unix(),
		fb.LastMentionedAt.Unix(),
		marshalJSON(fb.CallIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// ListFeedback returns a tenant's aggregates sorted by occurrence count,
// most mentioned first. feedbackType narrows the list when non-empty.
func (c *Client) ListFeedback(ctx context.Context, tenantID, feedbackType string, limit int) ([]models.FeedbackAggregate, error) {
	query := `
		SELECT id, tenant_id, feedback_type, feedback_text, category,
			occurrence_count, first_mentioned_at, last_mentioned_at, call_ids
		FROM feedback_aggregates
		WHERE tenant_id = ?
	`
	args := []any{tenantID}
	if feedbackType != "" {
		query += ` AND feedback_type = ?`
		args = append(args, feedbackType)
	}
	query += ` ORDER BY occurrence_count DESC, last_mentioned_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var aggregates []models.FeedbackAggregate
	for rows.Next() {
		var fb models.FeedbackAggregate
		var callIDs string
		var first, last int64

		err := rows.Scan(
			&fb.ID,
			&fb.TenantID,
			&fb.FeedbackType,
			&fb.FeedbackText,
			&fb.Category,
			&fb.OccurrenceCount,
			&first,
			&last,
			&callIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}

		unmarshalJSON(callIDs, &fb.CallIDs)
		fb.FirstMentionedAt = time.Unix(first, 0).UTC()
		fb.LastMentionedAt = time.Unix(last, 0).UTC()
		aggregates = append(aggregates, fb)
	}

	return aggregates, rows.Err()
}

func (c *Client) FindRollup(ctx context.Context, date, tenantID string) (*models.DailyRollup, error) {
	query := `
		SELECT id, date, tenant_id, total_calls, completed_calls, resolved_calls,
			escalated_calls, total_duration_seconds, avg_duration_seconds,
			resolution_rate, positive_calls, neutral_calls, negative_calls,
			avg_sentiment_score, category_breakdown
		FROM daily_rollups WHERE date = ? AND tenant_id = ?
	`

	var r models.DailyRollup
	var breakdown string

	err := c.db.QueryRowContext(ctx, query, date, tenantID).Scan(
		&r.ID,
		&r.Date,
		&r.TenantID,
		&r.TotalCalls,
		&r.CompletedCalls,
		&r.ResolvedCalls,
		&r.EscalatedCalls,
		&r.TotalDurationSeconds,
		&r.AvgDurationSeconds,
		&r.ResolutionRate,
		&r.PositiveCalls,
		&r.NeutralCalls,
		&r.NegativeCalls,
		&r.AvgSentimentScore,
		&breakdown,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rollup: %w", err)
	}

	unmarshalJSON(breakdown, &r.CategoryBreakdown)
	return &r, nil
}

func (c *Client) SaveRollup(ctx context.Context, r *models.DailyRollup) error {
	query := `
		INSERT INTO daily_rollups (
			id, date, tenant_id, total_calls, completed_calls, resolved_calls,
			escalated_calls, total_duration_seconds, avg_duration_seconds,
			resolution_rate, positive_calls, neutral_calls, negative_calls,
			avg_sentiment_score, category_breakdown
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, tenant_id) DO UPDATE SET
			total_calls = excluded.total_calls,
			completed_calls = excluded.completed_calls,
			resolved_calls = excluded.resolved_calls,
			escalated_calls = excluded.escalated_calls,
			total_duration_seconds = excluded.total_duration_seconds,
			avg_duration_seconds = excluded.avg_duration_seconds,
			resolution_rate = excluded.resolution_rate,
			positive_calls = excluded.positive_calls,
			neutral_calls = excluded.neutral_calls,
			negative_calls = excluded.negative_calls,
			avg_sentiment_score = excluded.avg_sentiment_score,
			category_breakdown = excluded.category_breakdown
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		r.ID,
		r.Date,
		r.TenantID,
		r.TotalCalls,
		r.CompletedCalls,
		r.ResolvedCalls,
		r.EscalatedCalls,
		r.TotalDurationSeconds,
		r.AvgDurationSeconds,
		r.ResolutionRate,
		r.PositiveCalls,
		r.NeutralCalls,
		r.NegativeCalls,
		r.AvgSentimentScore,
		marshalJSON(r.CategoryBreakdown),
	)
	if err != nil {
		return fmt.Errorf("failed to save rollup: %w", err)
	}
	return nil
}

// ListRollups returns a tenant's buckets for an inclusive date range,
// oldest first. Dates are YYYY-MM-DD strings so lexicographic comparison is
// chronological.
func (c *Client) ListRollups(ctx context.Context, tenantID, from, to string) ([]models.DailyRollup, error) {
	query := `
		SELECT id, date, tenant_id, total_calls, completed_calls, resolved_calls,
			escalated_calls, total_duration_seconds, avg_duration_seconds,
			resolution_rate, positive_calls, neutral_calls, negative_calls,
			avg_sentiment_score, category_breakdown
		FROM daily_rollups
		WHERE tenant_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := c.db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups: %w", err)
	}
	defer rows.Close()

	var rollups []models.DailyRollup
	for rows.Next() {
		var r models.DailyRollup
		var breakdown string

		err := rows.Scan(
			&r.ID,
			&r.Date,
			&r.TenantID,
			&r.TotalCalls,
			&r.CompletedCalls,
			&r.ResolvedCalls,
			&r.EscalatedCalls,
			&r.TotalDurationSeconds,
			&r.AvgDurationSeconds,
			&r.ResolutionRate,
			&r.PositiveCalls,
			&r.NeutralCalls,
			&r.NegativeCalls,
			&r.AvgSentimentScore,
			&breakdown,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}

		unmarshalJSON(breakdown, &r.CategoryBreakdown)
		rollups = append(rollups, r)
	}

	return rollups, rows.Err()
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func unmarshalJSON(s string, v any) {
	if s == "" {
		return
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		logger.Warn("Failed to decode stored JSON column", zap.Error(err))
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
