package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/solatra/solatra-backend/internal/external"
	"github.com/solatra/solatra-backend/internal/models"
	"github.com/solatra/solatra-backend/internal/screen"
)

// TrendingSource lists candidate tokens to screen.
type TrendingSource interface {
	GetTrendingTokens(ctx context.Context, limit int) ([]external.TrendingToken, error)
}

// ReportSource fetches the safety report for a mint.
type ReportSource interface {
	GetReport(ctx context.Context, mint string) (*external.TokenReport, error)
}

// CandidateStore persists screened candidates.
type CandidateStore interface {
	Record(ctx context.Context, c *models.TokenCandidate) (*models.TokenCandidate, error)
}

type ScanConfig struct {
	Interval   time.Duration // e.g. 10*time.Minute
	BatchLimit int           // tokens per scan
	OnApproved func(c models.TokenCandidate)
	Logger     *logrus.Logger
}

// ScanScheduler periodically pulls the trending list, screens each token
// and records the verdicts. Every pass gets its own scan run ID so rows
// from one sweep can be grouped.
type ScanScheduler struct {
	trending TrendingSource
	reports  ReportSource
	screener *screen.Screener
	store    CandidateStore
	cfg      ScanConfig
	log      *logrus.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewScanScheduler(trending TrendingSource, reports ReportSource, screener *screen.Screener, store CandidateStore, cfg ScanConfig) *ScanScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 20
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ScanScheduler{
		trending: trending,
		reports:  reports,
		screener: screener,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

func (s *ScanScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info("[SCAN] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initial scan on startup (fire-and-forget)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.ScanNow(ctx); err != nil {
			s.log.Warnf("[SCAN] Initial scan failed: %v", err)
		}
	}()

	// Recurring ticker
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if _, err := s.ScanNow(ctx); err != nil {
					s.log.Warnf("[SCAN] Scan failed: %v", err)
				}
				cancel()
			}
		}
	}()

	s.log.Infof("[SCAN] Started (every %s, batch %d)", s.cfg.Interval, s.cfg.BatchLimit)
}

func (s *ScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.log.Info("[SCAN] Stopped")
}

func (s *ScanScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ScanResult summarizes one scan pass.
type ScanResult struct {
	ScanRunID string
	Scanned   int
	Approved  int
	Rejected  int
}

// ScanNow runs one full discovery and screening pass.
func (s *ScanScheduler) ScanNow(ctx context.Context) (*ScanResult, error) {
	scanRunID := uuid.NewString()
	s.log.Infof("[SCAN] Run %s: fetching trending tokens...", scanRunID)

	tokens, err := s.trending.GetTrendingTokens(ctx, s.cfg.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	result := &ScanResult{ScanRunID: scanRunID}
	now := time.Now()

	for _, tok := range tokens {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		candidate := models.TokenCandidate{
			Mint:         tok.Address,
			Name:         tok.Name,
			Symbol:       tok.Symbol,
			LiquidityUSD: tok.Liquidity,
			Volume24hUSD: tok.Volume24hUSD,
			ScanRunID:    scanRunID,
			Source:       "birdeye",
			DiscoveredAt: now,
		}
		if tok.Price > 0 {
			price := tok.Price
			candidate.PriceUSD = &price
		}

		report, err := s.reports.GetReport(ctx, tok.Address)
		if err != nil {
			s.log.Warnf("[SCAN] No report for %s: %v", tok.Address, err)
		} else {
			candidate.RiskScore = float64(report.Score)
			candidate.TopHolderPct = report.MaxHolderPct()
			if liq := report.TotalLiquidityUSD(); liq > 0 {
				candidate.LiquidityUSD = liq
			}
		}

		approved, reason := s.screener.Evaluate(screen.Candidate{
			Mint:         tok.Address,
			Volume24hUSD: tok.Volume24hUSD,
			Report:       report,
		})
		candidate.Approved = approved
		if !approved {
			candidate.RejectReason = &reason
		}

		result.Scanned++
		if approved {
			result.Approved++
		} else {
			result.Rejected++
		}

		stored, err := s.store.Record(ctx, &candidate)
		if err != nil {
			s.log.Warnf("[SCAN] Failed to record %s: %v", tok.Address, err)
			continue
		}

		if approved {
			s.log.Infof("[SCAN] Approved %s (%s): score=%.0f top=%.1f%% liq=$%.0f",
				tok.Symbol, tok.Address, candidate.RiskScore, candidate.TopHolderPct, candidate.LiquidityUSD)
			if s.cfg.OnApproved != nil {
				s.cfg.OnApproved(*stored)
			}
		} else {
			s.log.Debugf("[SCAN] Rejected %s: %s", tok.Address, reason)
		}
	}

	s.log.Infof("[SCAN] Run %s done: %d scanned, %d approved, %d rejected",
		scanRunID, result.Scanned, result.Approved, result.Rejected)
	return result, nil
}
