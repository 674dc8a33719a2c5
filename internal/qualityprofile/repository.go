package qualityprofile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"qprofile/internal/constants"
	pkgerrors "qprofile/pkg/errors"
	"qprofile/pkg/metrics"
)

// PostgresStore is the relational system of record. Every session is one
// REPEATABLE READ transaction; concurrent writes to the same rows surface as
// ErrStoreConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) OpenSession(ctx context.Context) (Session, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresSession{tx: tx}, nil
}

type postgresSession struct {
	tx    *sql.Tx
	hooks []func()
	done  bool
}

func (s *postgresSession) Profiles() ProfileRepository {
	return &postgresProfiles{tx: s.tx}
}

func (s *postgresSession) Rules() RuleRepository {
	return &postgresRules{tx: s.tx}
}

func (s *postgresSession) ActiveRules() ActiveRuleRepository {
	return &postgresActiveRules{tx: s.tx}
}

func (s *postgresSession) AfterCommit(fn func()) {
	s.hooks = append(s.hooks, fn)
}

func (s *postgresSession) Commit() error {
	if s.done {
		return sql.ErrTxDone
	}
	s.done = true

	start := time.Now()
	err := s.tx.Commit()
	observeQuery("commit", start, err)
	if err != nil {
		return mapPQError(err, pkgerrors.ErrStoreConflict, "commit failed")
	}

	for _, fn := range s.hooks {
		fn()
	}
	return nil
}

// Close rolls back unless the session was committed. It is safe to call more
// than once.
func (s *postgresSession) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceName, "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceName, "postgres", operation, time.Since(start))
}

// mapPQError translates driver errors. Unique violations become onUnique;
// serialization failures and deadlocks become ErrStoreConflict.
func mapPQError(err error, onUnique *pkgerrors.Error, message string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		details := map[string]interface{}{
			"message":  message,
			"sqlstate": string(pqErr.Code),
		}
		switch pqErr.Code {
		case "23505":
			return pkgerrors.Wrap(err, onUnique).WithDetails(details)
		case "40001", "40P01":
			delete(details, "message")
			return pkgerrors.Wrap(err, pkgerrors.ErrStoreConflict).WithDetails(details)
		case "23503":
			return pkgerrors.Wrap(err, pkgerrors.ErrNotFound).WithDetails(details)
		}
	}
	return fmt.Errorf("%s: %w", message, err)
}

const profileColumns = `key, name, language, organization, is_default, parent_key, created_at, updated_at`

type postgresProfiles struct {
	tx *sql.Tx
}

func scanProfile(scan func(dest ...interface{}) error) (*Profile, error) {
	var p Profile
	var parent sql.NullString
	if err := scan(&p.Key, &p.Name, &p.Language, &p.Organization, &p.IsDefault, &parent, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		p.ParentKey = Some(parent.String)
	}
	return &p, nil
}

func (r *postgresProfiles) getOne(ctx context.Context, query string, args ...interface{}) (*Profile, error) {
	p, err := scanProfile(r.tx.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError(err, pkgerrors.ErrConflict, "failed to get quality profile")
	}
	return p, nil
}

func (r *postgresProfiles) Get(ctx context.Context, key string) (*Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM quality_profiles WHERE key = $1`, key)
}

func (r *postgresProfiles) GetByName(ctx context.Context, organization, name, language string) (*Profile, error) {
	return r.getOne(ctx, `
		SELECT `+profileColumns+`
		FROM quality_profiles
		WHERE organization = $1 AND name = $2 AND language = $3
	`, organization, name, language)
}

func (r *postgresProfiles) GetDefault(ctx context.Context, language string) (*Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM quality_profiles WHERE language = $1 AND is_default`, language)
}

func (r *postgresProfiles) ListChildren(ctx context.Context, parentKey string) ([]Profile, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM quality_profiles
		WHERE parent_key = $1
		ORDER BY key
	`, parentKey)
	if err != nil {
		return nil, mapPQError(err, pkgerrors.ErrConflict, "failed to list child profiles")
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (r *postgresProfiles) Insert(ctx context.Context, p *Profile) error {
	var parent sql.NullString
	if key, ok := p.ParentKey.Get(); ok {
		parent = sql.NullString{String: key, Valid: true}
	}

	start := time.Now()
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO quality_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.Key, p.Name, p.Language, p.Organization, p.IsDefault, parent, p.CreatedAt, p.UpdatedAt)
	observeQuery("insert_profile", start, err)

	return mapPQError(err, pkgerrors.ErrConflict, fmt.Sprintf("quality profile '%s' already exists for language %s", p.Name, p.Language))
}

func (r *postgresProfiles) Update(ctx context.Context, p *Profile) error {
	start := time.Now()
	res, err := r.tx.ExecContext(ctx, `
		UPDATE quality_profiles
		SET name = $2, is_default = $3, updated_at = $4
		WHERE key = $1
	`, p.Key, p.Name, p.IsDefault, p.UpdatedAt)
	observeQuery("update_profile", start, err)
	if err != nil {
		return mapPQError(err, pkgerrors.ErrConflict, fmt.Sprintf("quality profile '%s' conflicts with an existing profile", p.Name))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrNotFound.WithMessage("quality profile %q not found", p.Key)
	}
	return nil
}

func (r *postgresProfiles) ClearDefault(ctx context.Context, language string) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE quality_profiles SET is_default = FALSE, updated_at = NOW()
		WHERE language = $1 AND is_default
	`, language)
	return mapPQError(err, pkgerrors.ErrConflict, "failed to clear default profile")
}

// Delete relies on ON DELETE CASCADE for active rules and their parameters.
func (r *postgresProfiles) Delete(ctx context.Context, key string) error {
	start := time.Now()
	_, err := r.tx.ExecContext(ctx, `DELETE FROM quality_profiles WHERE key = $1`, key)
	observeQuery("delete_profile", start, err)
	return mapPQError(err, pkgerrors.ErrConflict, "failed to delete quality profile")
}

type postgresRules struct {
	tx *sql.Tx
}

func (r *postgresRules) Get(ctx context.Context, key RuleKey) (*Rule, error) {
	var rule Rule
	err := r.tx.QueryRowContext(ctx, `
		SELECT key, name, language, severity, status, tags
		FROM rules
		WHERE key = $1
	`, string(key)).Scan(&rule.Key, &rule.Name, &rule.Language, &rule.Severity, &rule.Status, pq.Array(&rule.Tags))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	params, err := r.loadParams(ctx, `WHERE rule_key = $1`, string(key))
	if err != nil {
		return nil, err
	}
	rule.Params = params[rule.Key]
	return &rule, nil
}

func (r *postgresRules) ListByLanguage(ctx context.Context, language string) ([]Rule, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT key, name, language, severity, status, tags
		FROM rules
		WHERE language = $1
		ORDER BY key
	`, language)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.Key, &rule.Name, &rule.Language, &rule.Severity, &rule.Status, pq.Array(&rule.Tags)); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	params, err := r.loadParams(ctx, `WHERE rule_key IN (SELECT key FROM rules WHERE language = $1)`, language)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].Params = params[rules[i].Key]
	}
	return rules, nil
}

func (r *postgresRules) loadParams(ctx context.Context, where string, args ...interface{}) (map[RuleKey][]RuleParam, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT rule_key, name, type, default_value, description
		FROM rule_params
		`+where+`
		ORDER BY rule_key, name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule params: %w", err)
	}
	defer rows.Close()

	out := make(map[RuleKey][]RuleParam)
	for rows.Next() {
		var key RuleKey
		var p RuleParam
		var def sql.NullString
		if err := rows.Scan(&key, &p.Name, &p.Type, &def, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan rule param: %w", err)
		}
		if def.Valid {
			p.DefaultValue = Some(def.String)
		}
		out[key] = append(out[key], p)
	}
	return out, rows.Err()
}

func (r *postgresRules) Upsert(ctx context.Context, rule *Rule) error {
	tags := rule.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO rules (key, name, language, severity, status, tags, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (key) DO UPDATE
		SET name = EXCLUDED.name, language = EXCLUDED.language, severity = EXCLUDED.severity,
			status = EXCLUDED.status, tags = EXCLUDED.tags, updated_at = NOW()
	`, string(rule.Key), rule.Name, rule.Language, string(rule.Severity), string(rule.Status), pq.Array(tags))
	if err != nil {
		return mapPQError(err, pkgerrors.ErrConflict, "failed to upsert rule")
	}

	if _, err := r.tx.ExecContext(ctx, `DELETE FROM rule_params WHERE rule_key = $1`, string(rule.Key)); err != nil {
		return mapPQError(err, pkgerrors.ErrConflict, "failed to replace rule params")
	}
	for _, p := range rule.Params {
		var def sql.NullString
		if v, ok := p.DefaultValue.Get(); ok {
			def = sql.NullString{String: v, Valid: true}
		}
		if _, err := r.tx.ExecContext(ctx, `
			INSERT INTO rule_params (rule_key, name, type, default_value, description)
			VALUES ($1, $2, $3, $4, $5)
		`, string(rule.Key), p.Name, string(p.Type), def, p.Description); err != nil {
			return mapPQError(err, pkgerrors.ErrConflict, "failed to insert rule param")
		}
	}
	return nil
}

type postgresActiveRules struct {
	tx *sql.Tx
}

func (r *postgresActiveRules) Get(ctx context.Context, key ActiveRuleKey) (*ActiveRule, error) {
	ar := ActiveRule{Key: key}
	err := r.tx.QueryRowContext(ctx, `
		SELECT severity, created_at, updated_at
		FROM active_rules
		WHERE profile_key = $1 AND rule_key = $2
	`, key.ProfileKey, string(key.RuleKey)).Scan(&ar.Severity, &ar.CreatedAt, &ar.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError(err, pkgerrors.ErrConflict, "failed to get active rule")
	}

	params, err := r.loadParams(ctx, `WHERE profile_key = $1 AND rule_key = $2`, key.ProfileKey, string(key.RuleKey))
	if err != nil {
		return nil, err
	}
	ar.Params = params[key.RuleKey]
	if ar.Params == nil {
		ar.Params = map[string]string{}
	}
	return &ar, nil
}

func (r *postgresActiveRules) ListByProfile(ctx context.Context, profileKey string) ([]ActiveRule, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT rule_key, severity, created_at, updated_at
		FROM active_rules
		WHERE profile_key = $1
		ORDER BY rule_key
	`, profileKey)
	if err != nil {
		return nil, mapPQError(err, pkgerrors.ErrConflict, "failed to list active rules")
	}

	var out []ActiveRule
	for rows.Next() {
		ar := ActiveRule{Key: ActiveRuleKey{ProfileKey: profileKey}}
		if err := rows.Scan(&ar.Key.RuleKey, &ar.Severity, &ar.CreatedAt, &ar.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan active rule: %w", err)
		}
		out = append(out, ar)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	params, err := r.loadParams(ctx, `WHERE profile_key = $1`, profileKey)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Params = params[out[i].Key.RuleKey]
		if out[i].Params == nil {
			out[i].Params = map[string]string{}
		}
	}
	return out, nil
}

func (r *postgresActiveRules) loadParams(ctx context.Context, where string, args ...interface{}) (map[RuleKey]map[string]string, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT rule_key, name, value
		FROM active_rule_params
		`+where, args...)
	if err != nil {
		return nil, mapPQError(err, pkgerrors.ErrConflict, "failed to load active rule params")
	}
	defer rows.Close()

	out := make(map[RuleKey]map[string]string)
	for rows.Next() {
		var key RuleKey
		var name, value string
		if err := rows.Scan(&key, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan active rule param: %w", err)
		}
		if out[key] == nil {
			out[key] = make(map[string]string)
		}
		out[key][name] = value
	}
	return out, rows.Err()
}

// Insert maps a unique violation to ErrStoreConflict: the caller checked for
// the row in the same transaction, so a duplicate means a concurrent writer.
func (r *postgresActiveRules) Insert(ctx context.Context, ar *ActiveRule) error {
	start := time.Now()
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO active_rules (profile_key, rule_key, severity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ar.Key.ProfileKey, string(ar.Key.RuleKey), string(ar.Severity), ar.CreatedAt, ar.UpdatedAt)
	observeQuery("insert_active_rule", start, err)
	if err != nil {
		return mapPQError(err, pkgerrors.ErrStoreConflict, fmt.Sprintf("rule %s was activated concurrently", ar.Key.RuleKey))
	}
	return r.writeParams(ctx, ar)
}

func (r *postgresActiveRules) Update(ctx context.Context, ar *ActiveRule) error {
	start := time.Now()
	res, err := r.tx.ExecContext(ctx, `
		UPDATE active_rules SET severity = $3, updated_at = $4
		WHERE profile_key = $1 AND rule_key = $2
	`, ar.Key.ProfileKey, string(ar.Key.RuleKey), string(ar.Severity), ar.UpdatedAt)
	observeQuery("update_active_rule", start, err)
	if err != nil {
		return mapPQError(err, pkgerrors.ErrConflict, "failed to update active rule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrStoreConflict.WithDetail("message", fmt.Sprintf("rule %s was deactivated concurrently", ar.Key.RuleKey))
	}

	if _, err := r.tx.ExecContext(ctx, `
		DELETE FROM active_rule_params WHERE profile_key = $1 AND rule_key = $2
	`, ar.Key.ProfileKey, string(ar.Key.RuleKey)); err != nil {
		return mapPQError(err, pkgerrors.ErrConflict, "failed to replace active rule params")
	}
	return r.writeParams(ctx, ar)
}

func (r *postgresActiveRules) writeParams(ctx context.Context, ar *ActiveRule) error {
	for _, name := range sortedParamNames(ar.Params) {
		if _, err := r.tx.ExecContext(ctx, `
			INSERT INTO active_rule_params (profile_key, rule_key, name, value)
			VALUES ($1, $2, $3, $4)
		`, ar.Key.ProfileKey, string(ar.Key.RuleKey), name, ar.Params[name]); err != nil {
			return mapPQError(err, pkgerrors.ErrStoreConflict, "failed to write active rule params")
		}
	}
	return nil
}

func (r *postgresActiveRules) Delete(ctx context.Context, key ActiveRuleKey) error {
	start := time.Now()
	_, err := r.tx.ExecContext(ctx, `
		DELETE FROM active_rules WHERE profile_key = $1 AND rule_key = $2
	`, key.ProfileKey, string(key.RuleKey))
	observeQuery("delete_active_rule", start, err)
	return mapPQError(err, pkgerrors.ErrConflict, "failed to delete active rule")
}

func (r *postgresActiveRules) DeleteByProfile(ctx context.Context, profileKey string) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM active_rules WHERE profile_key = $1`, profileKey)
	return mapPQError(err, pkgerrors.ErrConflict, "failed to delete active rules")
}
