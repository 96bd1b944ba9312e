package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence/models"
)

// GormCommissionRuleRepository implements commission.RuleRepository using GORM
type GormCommissionRuleRepository struct {
	db *gorm.DB
}

// NewGormCommissionRuleRepository creates a new GormCommissionRuleRepository
func NewGormCommissionRuleRepository(db *gorm.DB) *GormCommissionRuleRepository {
	return &GormCommissionRuleRepository{db: db}
}

// FindByID finds a rule by ID
func (r *GormCommissionRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.CommissionRule, error) {
	var model models.CommissionRuleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEffective returns active rules whose window contains at, restricted to
// the store, its categories, and the global scope
func (r *GormCommissionRuleRepository) FindEffective(ctx context.Context, storeID uuid.UUID, categoryIDs []uuid.UUID, at time.Time) ([]commission.CommissionRule, error) {
	query := r.db.WithContext(ctx).
		Where("active").
		Where("effective_from <= ?", at).
		Where("effective_until IS NULL OR effective_until > ?", at)

	scopes := r.db.
		Where("scope = ? AND store_id = ?", string(commission.RuleScopeSeller), storeID).
		Or("scope = ?", string(commission.RuleScopeGlobal))
	if len(categoryIDs) > 0 {
		scopes = scopes.Or("scope = ? AND category_id IN ?", string(commission.RuleScopeCategory), categoryIDs)
	}

	var rows []models.CommissionRuleModel
	if err := query.Where(scopes).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRules(rows), nil
}

// FindOverlapping returns existing rules of the candidate's scope and target
// whose effective window intersects the candidate's
func (r *GormCommissionRuleRepository) FindOverlapping(ctx context.Context, candidate *commission.CommissionRule) ([]commission.CommissionRule, error) {
	query := r.db.WithContext(ctx).
		Where("active").
		Where("scope = ?", string(candidate.Scope)).
		Where("id <> ?", candidate.ID)

	switch candidate.Scope {
	case commission.RuleScopeSeller:
		query = query.Where("store_id = ?", candidate.StoreID)
	case commission.RuleScopeCategory:
		query = query.Where("category_id = ?", candidate.CategoryID)
	}

	// Windows [from, until) intersect unless one ends before the other starts.
	// A NULL effective_until extends to infinity.
	if candidate.EffectiveUntil != nil {
		query = query.Where("effective_from < ?", *candidate.EffectiveUntil)
	}
	query = query.Where("effective_until IS NULL OR effective_until > ?", candidate.EffectiveFrom)

	var rows []models.CommissionRuleModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRules(rows), nil
}

// Save persists a rule
func (r *GormCommissionRuleRepository) Save(ctx context.Context, rule *commission.CommissionRule) error {
	model := models.CommissionRuleModelFromDomain(rule)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

func toDomainRules(rows []models.CommissionRuleModel) []commission.CommissionRule {
	rules := make([]commission.CommissionRule, len(rows))
	for i := range rows {
		rules[i] = *rows[i].ToDomain()
	}
	return rules
}

// Ensure GormCommissionRuleRepository implements RuleRepository
var _ commission.RuleRepository = (*GormCommissionRuleRepository)(nil)
