package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"hydramind/config"
	"hydramind/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const firebaseHistoryPath = "hydramind/history"

// FirebaseService mirrors chart history points into the Realtime Database
type FirebaseService struct {
	history *db.Ref
	logger  *zap.Logger
}

func NewFirebaseService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	conf := &firebase.Config{
		DatabaseURL: cfg.FirebaseDbUrl,
	}

	opt := option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	fs := &FirebaseService{
		history: client.NewRef(firebaseHistoryPath),
		logger:  logger,
	}

	connTest := retryPolicy{attempts: 3, step: time.Second}
	if err := connTest.do(ctx, logger, "Firebase connection test", fs.ping); err != nil {
		return nil, err
	}
	logger.Info("Firebase connection successful", zap.String("path", firebaseHistoryPath))

	return fs, nil
}

// ping reads the newest mirrored key, which also checks the rules allow reads
func (fs *FirebaseService) ping(ctx context.Context) error {
	var latest map[string]interface{}
	return fs.history.OrderByKey().LimitToLast(1).Get(ctx, &latest)
}

// WriteBatch stores points under keys derived from their record time, so a
// retried batch overwrites instead of duplicating
func (fs *FirebaseService) WriteBatch(ctx context.Context, points []models.HistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	updates := make(map[string]interface{}, len(points))
	for _, p := range points {
		updates[historyKey(p)] = map[string]interface{}{
			"time":        p.Time,
			"ph":          p.PH,
			"cod":         p.COD,
			"dosage":      p.Dosage,
			"recorded_at": p.RecordedAt.Format(time.RFC3339Nano),
		}
	}

	if err := fs.history.Update(ctx, updates); err != nil {
		return fmt.Errorf("error writing history batch: %w", err)
	}

	fs.logger.Debug("Wrote history batch to Firebase", zap.Int("count", len(points)))
	return nil
}

func historyKey(p models.HistoryPoint) string {
	return strconv.FormatInt(p.RecordedAt.UnixNano(), 10)
}

func (fs *FirebaseService) Close() error {
	fs.logger.Info("Closing Firebase service")
	return nil
}
