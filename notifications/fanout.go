package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"gtd-backend/migrations"

	"golang.org/x/sync/errgroup"
)

// batchSize caps how many sends run before a short pause, mirroring FCM's
// batch delivery limit.
const batchSize = 500

const fanoutConcurrency = 16

type FanoutStats struct {
	UsersProcessed int `json:"usersProcessed"`
	NoCaseUsers    int `json:"noCaseUsers"`
	TotalSent      int `json:"totalSent"`
	TotalFailed    int `json:"totalFailed"`
	TotalCleaned   int `json:"totalCleaned"`
}

// Fanout sends each opted-in user a push about a random case they have not
// played yet. Dead tokens are removed from the user record as they surface.
type Fanout struct {
	repo *Repository
	fcm  *FCMClient
}

func NewFanout(repo *Repository, fcm *FCMClient) *Fanout {
	return &Fanout{repo: repo, fcm: fcm}
}

func (f *Fanout) Run(ctx context.Context) (*FanoutStats, error) {
	start := time.Now()
	recipients, err := f.repo.Recipients(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	stats := &FanoutStats{}

	for offset := 0; offset < len(recipients); offset += batchSize {
		end := offset + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fanoutConcurrency)
		for _, rec := range recipients[offset:end] {
			rec := rec
			g.Go(func() error {
				teaser, err := f.repo.RandomUnplayedCase(gctx, rec.UserID)
				if err != nil {
					log.Printf("[Notify][Fanout] case pick failed for user %d: %v", rec.UserID, err)
					mu.Lock()
					stats.TotalFailed++
					mu.Unlock()
					return nil
				}
				mu.Lock()
				stats.UsersProcessed++
				mu.Unlock()
				if teaser == nil {
					mu.Lock()
					stats.NoCaseUsers++
					mu.Unlock()
					return nil
				}

				title := teaser.Title
				if title == "" {
					title = "New clinical case"
				}
				data := map[string]string{
					"caseID": strconv.Itoa(teaser.CaseID),
					"screen": "ClinicalInfo",
				}
				_, err = f.fcm.SendToToken(gctx, rec.FCMToken, "A case is waiting for you!", title, data, teaser.ImageURL)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == ErrTokenNotRegistered:
					stats.TotalFailed++
					if cerr := migrations.ClearFCMToken(rec.FCMToken); cerr != nil {
						log.Printf("[Notify][Fanout] token cleanup failed: %v", cerr)
					} else {
						stats.TotalCleaned++
					}
				case err != nil:
					stats.TotalFailed++
					log.Printf("[Notify][Fanout] send failed for user %d: %v", rec.UserID, err)
				default:
					stats.TotalSent++
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}
		if end < len(recipients) {
			// Brief pause between batches to stay under rate limits.
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	log.Printf("[Notify][Fanout] done in %.2fs: %+v", time.Since(start).Seconds(), *stats)
	return stats, nil
}
