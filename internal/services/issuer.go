package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ollysocial/backend/internal/models"
)

// issueConcurrency bounds how many issuance units run at once. Units are
// independent and each commits in its own transaction.
const issueConcurrency = 8

// KeyGenerator produces unique credential strings per namespace.
type KeyGenerator interface {
	LicenseKey(ctx context.Context) (string, error)
	SubLicenseKey(ctx context.Context) (string, error)
	RedeemCode(ctx context.Context) (string, error)
}

// IssuerLicenseRepo is the minimal license store for batch issuance.
type IssuerLicenseRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, l *models.LicenseKey) error
}

// IssuerSubLicenseRepo is the minimal sub-license store for batch issuance.
type IssuerSubLicenseRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, s *models.SubLicense) error
}

// IssuerRedeemRepo is the minimal redeem store for batch issuance.
type IssuerRedeemRepo interface {
	CreateBatch(ctx context.Context, b *models.RedeemBatch) error
	CreateCodeTx(ctx context.Context, tx pgx.Tx, c *models.RedeemCode) error
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BatchIssuer creates promotional redeem-code batches: per unit, one redeem
// code bound 1:1 to a fresh inactive license plus its tier-sized set of
// inactive sub-licenses.
type BatchIssuer struct {
	Pool        TxBeginner
	Keys        KeyGenerator
	Licenses    IssuerLicenseRepo
	SubLicenses IssuerSubLicenseRepo
	Redeems     IssuerRedeemRepo
	Logger      *slog.Logger
}

func NewBatchIssuer(pool TxBeginner, keys KeyGenerator, licenses IssuerLicenseRepo, subLicenses IssuerSubLicenseRepo, redeems IssuerRedeemRepo, logger *slog.Logger) *BatchIssuer {
	return &BatchIssuer{
		Pool:        pool,
		Keys:        keys,
		Licenses:    licenses,
		SubLicenses: subLicenses,
		Redeems:     redeems,
		Logger:      logger,
	}
}

type IssueBatchRequest struct {
	Quantity     int    `json:"quantity"`
	Campaign     string `json:"campaign"`
	ValidityDays int    `json:"validity_days"`
	Name         string `json:"name"`
	Tier         string `json:"tier"`
	Credits      int    `json:"credits"`
}

// IssuedUnit is one redeem code with its full credential bundle.
type IssuedUnit struct {
	Code           string   `json:"code"`
	LicenseKey     string   `json:"license_key"`
	Tier           string   `json:"tier"`
	Credits        int      `json:"credits"`
	SubLicenseKeys []string `json:"sub_license_keys"`
}

type BatchResult struct {
	Batch *models.RedeemBatch `json:"batch"`
	Codes []IssuedUnit        `json:"codes"`
}

// parseTier maps "T1".."T5" to its numeric tier; returns 0 when invalid.
func parseTier(tier string) int {
	if len(tier) != 2 || tier[0] != 'T' {
		return 0
	}
	n, err := strconv.Atoi(tier[1:])
	if err != nil {
		return 0
	}
	if _, ok := models.TierSubLicenseCount[n]; !ok {
		return 0
	}
	return n
}

// IssueBatch validates the request, creates the batch record, and issues
// the requested number of units concurrently. The batch is not
// all-or-nothing: units that committed before a failure stay committed, and
// the partial result is returned alongside the error.
func (s *BatchIssuer) IssueBatch(ctx context.Context, req IssueBatchRequest, issuedBy uuid.UUID, issuerEmail string) (*BatchResult, error) {
	if req.Quantity < 1 || req.Quantity > 1000 {
		return nil, ErrInvalidQuantity
	}
	tierNum := parseTier(req.Tier)
	if tierNum == 0 {
		return nil, ErrInvalidTier
	}
	if req.Credits < 0 {
		return nil, ErrInvalidCredits
	}

	campaign := req.Campaign
	if campaign == "" {
		campaign = "Promotion"
	}
	name := req.Name
	if name == "" {
		name = "Promo-" + time.Now().Format("2006-01-02")
	}
	validityDays := req.ValidityDays
	if validityDays <= 0 {
		validityDays = 30
	}

	batchMeta, err := json.Marshal(models.BatchMetadata{
		Tier:           req.Tier,
		Credits:        req.Credits,
		CreatedByEmail: issuerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal batch metadata: %w", err)
	}

	batch := &models.RedeemBatch{
		ID:        uuid.New(),
		Name:      name,
		Campaign:  campaign,
		Quantity:  req.Quantity,
		Validity:  time.Now().AddDate(0, 0, validityDays),
		CreatedBy: issuedBy,
		Metadata:  batchMeta,
	}
	if err := s.Redeems.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create redeem batch: %w", err)
	}

	fanout := models.TierSubLicenseCount[tierNum]

	var mu sync.Mutex
	var issued []IssuedUnit

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(issueConcurrency)
	for i := 0; i < req.Quantity; i++ {
		g.Go(func() error {
			unit, err := s.issueUnit(gctx, batch, req.Tier, tierNum, fanout, req.Credits)
			if err != nil {
				return err
			}
			mu.Lock()
			issued = append(issued, *unit)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Logger.Error("batch issuance aborted",
			"batch_id", batch.ID, "requested", req.Quantity, "issued", len(issued), "error", err)
		return &BatchResult{Batch: batch, Codes: issued}, err
	}
	return &BatchResult{Batch: batch, Codes: issued}, nil
}

// issueUnit creates one code + license + sub-license bundle in a single
// transaction. Steps are sequenced because later rows reference earlier ids.
func (s *BatchIssuer) issueUnit(ctx context.Context, batch *models.RedeemBatch, tier string, tierNum, fanout, credits int) (*IssuedUnit, error) {
	code, err := s.Keys.RedeemCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate redeem code: %w", err)
	}
	licenseKey, err := s.Keys.LicenseKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate license key: %w", err)
	}

	licenseMeta, err := json.Marshal(models.LicenseMetadata{Credits: credits})
	if err != nil {
		return nil, fmt.Errorf("marshal license metadata: %w", err)
	}
	subMeta, err := json.Marshal(models.SubLicenseMetadata{ParentTier: tier})
	if err != nil {
		return nil, fmt.Errorf("marshal sub-license metadata: %w", err)
	}
	codeMeta, err := json.Marshal(models.CodeMetadata{Credits: credits})
	if err != nil {
		return nil, fmt.Errorf("marshal code metadata: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin issuance tx: %w", err)
	}
	defer tx.Rollback(ctx)

	license := &models.LicenseKey{
		ID:       uuid.New(),
		Key:      licenseKey,
		IsActive: false,
		Tier:     tierNum,
		Vendor:   models.VendorPromo,
		Metadata: licenseMeta,
	}
	if err := s.Licenses.CreateTx(ctx, tx, license); err != nil {
		return nil, fmt.Errorf("create license: %w", err)
	}

	subKeys := make([]string, 0, fanout)
	for i := 0; i < fanout; i++ {
		subKey, err := s.Keys.SubLicenseKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate sub-license key: %w", err)
		}
		sub := &models.SubLicense{
			ID:               uuid.New(),
			Key:              subKey,
			Status:           models.SubLicenseStatusInactive,
			MainLicenseKeyID: license.ID,
			Vendor:           models.VendorPromo,
			Metadata:         subMeta,
		}
		if err := s.SubLicenses.CreateTx(ctx, tx, sub); err != nil {
			return nil, fmt.Errorf("create sub-license: %w", err)
		}
		subKeys = append(subKeys, subKey)
	}

	codeRow := &models.RedeemCode{
		ID:           uuid.New(),
		Code:         code,
		Status:       models.RedeemCodeStatusActive,
		BatchID:      batch.ID,
		LicenseKeyID: license.ID,
		Metadata:     codeMeta,
	}
	if err := s.Redeems.CreateCodeTx(ctx, tx, codeRow); err != nil {
		return nil, fmt.Errorf("create redeem code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit issuance tx: %w", err)
	}
	return &IssuedUnit{
		Code:           code,
		LicenseKey:     licenseKey,
		Tier:           tier,
		Credits:        credits,
		SubLicenseKeys: subKeys,
	}, nil
}
