package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/repository"
	"tp_portal_backend/internal/util"
	"tp_portal_backend/pkg/logger"
	"tp_portal_backend/pkg/monitoring"
	"tp_portal_backend/pkg/tracing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxIssueAttempts = 50

// CodeService is the code registry: one-time supervisor/coordinator access
// codes and the allow-list of student registration numbers.
type CodeService struct {
	Codes   AccessCodeStore
	RegNums RegistrationStore
	Cfg     *config.Config

	// Digits returns n random digits. Replaced in tests.
	Digits func(n int) (string, error)
}

func NewCodeService(codes AccessCodeStore, regNums RegistrationStore, cfg *config.Config) *CodeService {
	return &CodeService{
		Codes:   codes,
		RegNums: regNums,
		Cfg:     cfg,
		Digits:  randomDigits,
	}
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// Issue generates a fresh code of the given type. Values are re-sampled until
// they collide with no existing code of any type.
func (s *CodeService) Issue(ctx context.Context, codeType model.CodeType) (*model.AccessCode, error) {
	ctx, span := tracing.StartSpan(ctx, "CodeService.Issue")
	defer span.End()

	length := codeType.Length()
	if length == 0 {
		return nil, util.ErrUnknownCodeType
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := s.Digits(length)
		if err != nil {
			return nil, err
		}

		exists, err := s.Codes.Exists(ctx, value)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		code := &model.AccessCode{Code: value, Type: codeType}
		if err := s.Codes.Create(ctx, code); err != nil {
			// lost a race with a concurrent issue of the same value
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return nil, err
		}

		monitoring.CodesIssued.WithLabelValues(string(codeType)).Inc()
		logger.Log.Info("Access code issued", zap.String("type", string(codeType)))
		return code, nil
	}

	return nil, fmt.Errorf("could not allocate a unique %s code after %d attempts", codeType, maxIssueAttempts)
}

// Validate finds the code of exactly this type. A match says nothing about
// whether it is still available.
func (s *CodeService) Validate(ctx context.Context, code string, codeType model.CodeType) (*model.AccessCode, error) {
	ac, err := s.Codes.FindByCodeAndType(ctx, code, codeType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCodeNotFound
		}
		return nil, err
	}
	return ac, nil
}

// Consume marks the code used by email. It fails with ErrCodeAlreadyUsed when
// the code was consumed in the meantime.
func (s *CodeService) Consume(ctx context.Context, code, email string) error {
	return s.Codes.MarkUsed(ctx, code, email)
}

// Release returns a code to the available pool.
func (s *CodeService) Release(ctx context.Context, code string) error {
	return s.Codes.Release(ctx, code)
}

func (s *CodeService) ListCodes(ctx context.Context, filter repository.CodeFilter) ([]model.AccessCode, error) {
	return s.Codes.List(ctx, filter)
}

func (s *CodeService) normalize(input string) (string, error) {
	return util.NormalizeRegNumber(s.Cfg.Onboarding.RegNumberPrefix, input)
}

// AllowRegistration reports whether the registration number is on the
// allow-list. Malformed numbers are simply not allowed.
func (s *CodeService) AllowRegistration(ctx context.Context, number string) (bool, error) {
	normalized, err := s.normalize(number)
	if err != nil {
		return false, nil
	}
	return s.RegNums.Exists(ctx, normalized)
}

func (s *CodeService) AddRegistrationNumber(ctx context.Context, input string) (*model.RegistrationNumber, error) {
	normalized, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	exists, err := s.RegNums.Exists(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrRegNumberExists
	}

	rn := &model.RegistrationNumber{Number: normalized}
	if err := s.RegNums.Create(ctx, rn); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrRegNumberExists
		}
		return nil, err
	}
	return rn, nil
}

func (s *CodeService) ListRegistrationNumbers(ctx context.Context) ([]model.RegistrationNumber, error) {
	return s.RegNums.List(ctx)
}

func (s *CodeService) DeleteRegistrationNumber(ctx context.Context, input string) error {
	normalized, err := s.normalize(input)
	if err != nil {
		return err
	}
	if err := s.RegNums.Delete(ctx, normalized); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrRegNumberNotFound
		}
		return err
	}
	return nil
}

type ImportResult struct {
	Added      int      `json:"added"`
	Duplicates int      `json:"duplicates"`
	Invalid    []string `json:"invalid"`
}

// ImportRegistrationNumbers adds every number found in the first column of the
// first sheet of an xlsx workbook. A header row is skipped as invalid input.
func (s *CodeService) ImportRegistrationNumbers(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid xlsx file", util.ErrValidation)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &ImportResult{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		_, err := s.AddRegistrationNumber(ctx, row[0])
		switch {
		case err == nil:
			result.Added++
		case errors.Is(err, util.ErrRegNumberExists):
			result.Duplicates++
		case errors.Is(err, util.ErrRegNumberFormat):
			if i > 0 {
				result.Invalid = append(result.Invalid, row[0])
			}
		default:
			return result, err
		}
	}

	logger.Log.Info("Registration numbers imported",
		zap.Int("added", result.Added),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("invalid", len(result.Invalid)),
	)
	return result, nil
}
