package workers

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StartSessionCleanup periodically purges sessions and verification tokens
// that can no longer be used. Runs until the process exits.
func StartSessionCleanup(db *pgxpool.Pool) {
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		for range ticker.C {
			cleanupExpiredSessions(db)
		}
	}()
}

func cleanupExpiredSessions(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// 24 hour grace period so a just-revoked token still reads as revoked
	// on refresh rather than unknown.
	tag, err := db.Exec(ctx, `
		DELETE FROM sessions
		WHERE expires_at < NOW() - INTERVAL '24 hours'
		   OR revoked_at < NOW() - INTERVAL '24 hours'`)
	if err != nil {
		log.Printf("Session cleanup failed: %v", err)
		return
	}
	if tag.RowsAffected() > 0 {
		log.Printf("Session cleanup removed %d stale sessions", tag.RowsAffected())
	}

	tag, err = db.Exec(ctx, `
		DELETE FROM email_verification_tokens
		WHERE expires_at < NOW() - INTERVAL '24 hours'`)
	if err != nil {
		log.Printf("Verification token cleanup failed: %v", err)
		return
	}
	if tag.RowsAffected() > 0 {
		log.Printf("Session cleanup removed %d stale verification tokens", tag.RowsAffected())
	}
}
