// Package migration imports a legacy deployment's participants, challenges
// and stakes into Postgres, from raw BSON dumps or a live MongoDB.
package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stridebet/stridebet/stridebet/config"
	"github.com/stridebet/stridebet/stridebet/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// tokenScale converts legacy fractional-token amounts to 1e18 base units.
const tokenScale = 1e18

type Migrator struct {
	pgDB    *bun.DB
	dataDir string

	batchSize    int
	sleepBetween time.Duration
	stats        MigrationStats

	// Optional direct Mongo access instead of BSON dumps.
	mongoDB   *mongo.Database
	collNames map[string]string

	// Optional pgx COPY fast path for the stake table, by far the largest.
	useCopy bool
	pool    *pgxpool.Pool
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:      pgDB,
		dataDir:   dataDir,
		batchSize: 1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		collNames: map[string]string{
			"participants": "accounts",
			"challenges":   "challenges",
			"stakes":       "bets",
		},
	}
}

// SetBatchSize overrides the default insert batch size.
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetSleepBetween inserts a pause between batches, in milliseconds.
func (m *Migrator) SetSleepBetween(ms int) {
	if ms > 0 {
		m.sleepBetween = time.Duration(ms) * time.Millisecond
	}
}

// SetUseCopy enables COPY FROM for stake rows.
func (m *Migrator) SetUseCopy(v bool) { m.useCopy = v }

// UsePool sets the pgx pool COPY operations run on.
func (m *Migrator) UsePool(pool *pgxpool.Pool) { m.pool = pool }

// UseMongo points the migrator at a live database instead of dump files.
func (m *Migrator) UseMongo(client *mongo.Client, dbName string) {
	m.mongoDB = client.Database(dbName)
}

// SetCollectionName overrides a source collection name.
func (m *Migrator) SetCollectionName(kind, name string) {
	if name != "" {
		m.collNames[kind] = name
	}
}

func (m *Migrator) table(name string) *TableStats {
	if m.stats.Tables[name] == nil {
		m.stats.Tables[name] = &TableStats{}
	}
	return m.stats.Tables[name]
}

// MigrateAll imports from BSON dump files under the data directory.
// Order matters: stakes reference participants and challenges.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	if err := m.MigrateParticipants(ctx); err != nil {
		return err
	}
	if err := m.MigrateChallenges(ctx); err != nil {
		return err
	}
	if err := m.MigrateStakes(ctx); err != nil {
		return err
	}
	if err := m.RecomputeChallengeTotals(ctx); err != nil {
		return err
	}
	m.logSummary()
	return nil
}

// MigrateAllFromMongo imports from a live MongoDB. Participants and
// challenges load concurrently; stakes wait for both.
func (m *Migrator) MigrateAllFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return fmt.Errorf("no mongo database configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.migrateParticipantsFromMongo(gctx) })
	g.Go(func() error { return m.migrateChallengesFromMongo(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	if err := m.migrateStakesFromMongo(ctx); err != nil {
		return err
	}
	if err := m.RecomputeChallengeTotals(ctx); err != nil {
		return err
	}
	m.logSummary()
	return nil
}

// RecomputeChallengeTotals rebuilds the per-side aggregates from imported
// stake rows. Dump totals are not trusted; the stake table is the source of
// truth.
func (m *Migrator) RecomputeChallengeTotals(ctx context.Context) error {
	_, err := m.pgDB.ExecContext(ctx, `
		UPDATE challenges c SET
			total_staked_for = COALESCE(agg.sum_for, 0),
			total_staked_against = COALESCE(agg.sum_against, 0),
			bettors_for = COALESCE(agg.n_for, 0),
			bettors_against = COALESCE(agg.n_against, 0)
		FROM (
			SELECT challenge_id,
				SUM(amount) FILTER (WHERE side = 'for') AS sum_for,
				SUM(amount) FILTER (WHERE side = 'against') AS sum_against,
				COUNT(*) FILTER (WHERE side = 'for') AS n_for,
				COUNT(*) FILTER (WHERE side = 'against') AS n_against
			FROM challenge_stakes
			GROUP BY challenge_id
		) agg
		WHERE agg.challenge_id = c.id`)
	if err != nil {
		return fmt.Errorf("failed to recompute challenge totals: %w", err)
	}
	return nil
}

func (m *Migrator) logSummary() {
	for name, t := range m.stats.Tables {
		slog.Info("Import summary",
			slog.String("type", "sys"),
			slog.String("table", name),
			slog.Int("read", t.Read),
			slog.Int("imported", t.Imported),
			slog.Int("skipped", t.Skipped),
			slog.Duration("elapsed", time.Since(m.stats.StartTime)),
		)
	}
}

// readBSONDocs streams length-prefixed BSON documents from a dump file and
// decodes each into out's element type via the decode callback.
func readBSONDocs(path string, decode func(raw []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open BSON dump %s: %w", path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		lengthBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, lengthBytes); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read document length: %w", err)
		}

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 {
			return fmt.Errorf("invalid document length: %d", length)
		}

		docBytes := make([]byte, length-4)
		if _, err := io.ReadFull(reader, docBytes); err != nil {
			return fmt.Errorf("failed to read document bytes: %w", err)
		}

		if err := decode(append(lengthBytes, docBytes...)); err != nil {
			return err
		}
	}
}

// --- participants ---

func (m *Migrator) MigrateParticipants(ctx context.Context) error {
	var docs []MongoParticipant
	err := readBSONDocs(filepath.Join(m.dataDir, "accounts.bson"), func(raw []byte) error {
		var doc MongoParticipant
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode participant: %w", err)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return err
	}
	return m.importParticipants(ctx, docs)
}

func (m *Migrator) migrateParticipantsFromMongo(ctx context.Context) error {
	cur, err := m.mongoDB.Collection(m.collNames["participants"]).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query participants: %w", err)
	}
	defer cur.Close(ctx)

	var docs []MongoParticipant
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("failed to read participants: %w", err)
	}
	return m.importParticipants(ctx, docs)
}

func (m *Migrator) importParticipants(ctx context.Context, docs []MongoParticipant) error {
	stats := m.table("participants")
	stats.Read = len(docs)

	// Legacy dumps carry duplicate account rows; the last one wins.
	byID := make(map[string]*models.Participant, len(docs))
	for _, doc := range docs {
		if doc.AccountID == "" {
			stats.Skipped++
			continue
		}
		byID[doc.AccountID] = convertParticipant(doc)
	}

	rows := make([]*models.Participant, 0, len(byID))
	for _, p := range byID {
		rows = append(rows, p)
	}

	for start := 0; start < len(rows); start += m.batchSize {
		end := start + m.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		if err := m.insertBatch(ctx, &batch, "CONFLICT (id) DO NOTHING"); err != nil {
			return fmt.Errorf("failed to insert participant batch: %w", err)
		}
		stats.Imported += len(batch)
		m.pause()
	}
	return nil
}

// --- challenges ---

func (m *Migrator) MigrateChallenges(ctx context.Context) error {
	var docs []MongoChallenge
	err := readBSONDocs(filepath.Join(m.dataDir, "challenges.bson"), func(raw []byte) error {
		var doc MongoChallenge
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode challenge: %w", err)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return err
	}
	return m.importChallenges(ctx, docs)
}

func (m *Migrator) migrateChallengesFromMongo(ctx context.Context) error {
	cur, err := m.mongoDB.Collection(m.collNames["challenges"]).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query challenges: %w", err)
	}
	defer cur.Close(ctx)

	var docs []MongoChallenge
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("failed to read challenges: %w", err)
	}
	return m.importChallenges(ctx, docs)
}

func (m *Migrator) importChallenges(ctx context.Context, docs []MongoChallenge) error {
	stats := m.table("challenges")
	stats.Read = len(docs)

	rows := make([]*models.Challenge, 0, len(docs))
	for _, doc := range docs {
		if doc.ChallengeID == 0 || doc.Owner == "" {
			stats.Skipped++
			continue
		}
		rows = append(rows, convertChallenge(doc))
	}

	for start := 0; start < len(rows); start += m.batchSize {
		end := start + m.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		if err := m.insertBatch(ctx, &batch, "CONFLICT (id) DO NOTHING"); err != nil {
			return fmt.Errorf("failed to insert challenge batch: %w", err)
		}
		stats.Imported += len(batch)
		m.pause()
	}
	return nil
}

// --- stakes ---

func (m *Migrator) MigrateStakes(ctx context.Context) error {
	var docs []MongoStake
	err := readBSONDocs(filepath.Join(m.dataDir, "bets.bson"), func(raw []byte) error {
		var doc MongoStake
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode stake: %w", err)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return err
	}
	return m.importStakes(ctx, docs)
}

func (m *Migrator) migrateStakesFromMongo(ctx context.Context) error {
	cur, err := m.mongoDB.Collection(m.collNames["stakes"]).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query stakes: %w", err)
	}
	defer cur.Close(ctx)

	var docs []MongoStake
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("failed to read stakes: %w", err)
	}
	return m.importStakes(ctx, docs)
}

func (m *Migrator) importStakes(ctx context.Context, docs []MongoStake) error {
	stats := m.table("stakes")
	stats.Read = len(docs)

	rows := make([]*models.Stake, 0, len(docs))
	for _, doc := range docs {
		stake, ok := convertStake(doc)
		if !ok {
			stats.Skipped++
			continue
		}
		rows = append(rows, stake)
	}

	if m.useCopy && m.pool != nil {
		n, err := m.copyStakes(ctx, rows)
		stats.Imported = n
		return err
	}

	for start := 0; start < len(rows); start += m.batchSize {
		end := start + m.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		if err := m.insertBatch(ctx, &batch, "CONFLICT (challenge_id, participant_id, side) DO NOTHING"); err != nil {
			return fmt.Errorf("failed to insert stake batch: %w", err)
		}
		stats.Imported += len(batch)
		m.pause()
	}
	return nil
}

// copyStakes bulk-loads stakes with COPY. No conflict handling, so it is
// only safe into an empty table.
func (m *Migrator) copyStakes(ctx context.Context, rows []*models.Stake) (int, error) {
	copied, err := m.pool.CopyFrom(ctx,
		pgx.Identifier{"challenge_stakes"},
		[]string{"challenge_id", "participant_id", "side", "amount", "created_at"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			s := rows[i]
			return []any{s.ChallengeID, s.ParticipantID, string(s.Side), s.Amount, s.CreatedAt}, nil
		}),
	)
	if err != nil {
		return int(copied), fmt.Errorf("failed to COPY stakes: %w", err)
	}
	return int(copied), nil
}

// insertBatch runs one batched insert under the shared batch-query timeout so
// a stuck batch cannot stall the whole import.
func (m *Migrator) insertBatch(ctx context.Context, batch any, conflict string) error {
	ctx, cancel := context.WithTimeout(ctx, config.BatchQueryTimeout)
	defer cancel()
	_, err := m.pgDB.NewInsert().Model(batch).On(conflict).Exec(ctx)
	return err
}

func (m *Migrator) pause() {
	if m.sleepBetween > 0 {
		time.Sleep(m.sleepBetween)
	}
}
