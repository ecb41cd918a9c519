// Package access decides whether a principal may perform an operation on an
// entity type, and which entities a query may reach.
package access

import (
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
)

// Evaluator is a pure decision function over principals. The clock is the
// only input that is not passed per call.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator builds an Evaluator. A nil clock means time.Now.
func NewEvaluator(now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{now: now}
}

// Evaluate returns the decision for p performing op on kind. When instance is
// nil the result is type-level: reads and writes alike come back as
// AllowWithPredicate carrying the scope the instance must fall into. When
// instance is supplied the result is Allow or Deny for that record.
func (e *Evaluator) Evaluate(p *domain.Principal, kind domain.EntityType, op Operation, instance domain.Attrs) Decision {
	if p == nil || p.CheckAffiliation() != nil || p.ExpiredAt(e.now()) {
		return deny(ReasonExpired, "expired")
	}

	perm, ok := RequiredPermission(kind, op)
	if !ok {
		return deny(ReasonNoMatchingRule, "unsupported_operation")
	}

	var d Decision
	switch p.Family() {
	case domain.FamilyCompany:
		d = e.company(p, kind, op, perm)
	case domain.FamilyPermanent, domain.FamilyTemporary:
		d = e.office(p, kind, op, perm, instance)
	case domain.FamilyConstituent:
		d = e.constituent(p, kind, op, perm, instance)
	default:
		d = deny(ReasonNoMatchingRule, "default")
	}
	if d.Allowed() {
		d = withInstance(d, instance)
	}
	d.Permission = perm
	return d
}

// Scope returns the predicate a query by p over kind is confined to, or
// query.None when p may not query kind at all.
func (e *Evaluator) Scope(p *domain.Principal, kind domain.EntityType) query.Predicate {
	d := e.Evaluate(p, kind, OpQuery, nil)
	if !d.Allowed() {
		return query.None()
	}
	return d.Scope
}

func (e *Evaluator) company(p *domain.Principal, kind domain.EntityType, op Operation, perm domain.Permission) Decision {
	if kind != domain.EntityAnalytics && kind != domain.EntitySettings {
		return deny(ReasonNoMatchingRule, "company")
	}
	if !p.Has(perm) {
		return deny(ReasonInsufficientPermission, "company")
	}
	if !op.IsRead() && p.Role != domain.RoleCompanyAdmin && p.Role != domain.RoleCompanyManager {
		return deny(ReasonInsufficientPermission, "company_write")
	}
	return Decision{Effect: AllowWithPredicate, Scope: query.All(), Rule: "company"}
}

func (e *Evaluator) office(p *domain.Principal, kind domain.EntityType, op Operation, perm domain.Permission, instance domain.Attrs) Decision {
	rule := "staff"
	if p.Role == domain.RoleRepresentative {
		rule = "representative"
	}
	scope := query.Eq(domain.FieldOfficeID, p.OfficeID).And(query.Eq(domain.FieldRepresentativeID, p.ScopeID()))

	if instance != nil && !scope.Matches(instance) {
		return deny(ReasonNoMatchingRule, rule)
	}
	if !p.Has(perm) {
		return deny(ReasonInsufficientPermission, rule)
	}
	if p.Family() == domain.FamilyTemporary {
		if p.Restrictions.Permissions.Has(perm) {
			return deny(ReasonInsufficientPermission, "temporary_restriction")
		}
		if kind == domain.EntityCommunications && instance != nil && channelSensitive(op) &&
			p.Restrictions.RestrictsChannel(domain.Channel(instance.Get(domain.FieldChannel))) {
			return deny(ReasonInsufficientPermission, "temporary_channel")
		}
	}
	return Decision{Effect: AllowWithPredicate, Scope: scope, Rule: rule}
}

func (e *Evaluator) constituent(p *domain.Principal, kind domain.EntityType, op Operation, perm domain.Permission, instance domain.Attrs) Decision {
	if op.IsRead() && op != OpExport {
		if !p.Has(perm) {
			return deny(ReasonInsufficientPermission, "constituent")
		}
		if p.District == "" {
			return Decision{Effect: AllowWithPredicate, Scope: query.None(), Rule: "constituent"}
		}
		scope := query.Eq(domain.FieldVisibility, string(domain.VisibilityPublic)).
			And(query.Eq(domain.FieldDistrict, p.District))
		if p.RepresentativeID != "" {
			scope = scope.And(query.Eq(domain.FieldRepresentativeID, p.RepresentativeID))
		}
		if instance != nil && !scope.Matches(instance) {
			return deny(ReasonNoMatchingRule, "constituent")
		}
		return Decision{Effect: AllowWithPredicate, Scope: scope, Rule: "constituent"}
	}

	if kind != domain.EntityCommunications || op != OpCreate || !p.Has(perm) || p.RepresentativeID == "" {
		return deny(ReasonInsufficientPermission, "constituent_write")
	}
	scope := query.Eq(domain.FieldDirection, string(domain.DirectionInbound)).
		And(query.Eq(domain.FieldRepresentativeID, p.RepresentativeID))
	if instance == nil || !scope.Matches(instance) {
		return deny(ReasonInsufficientPermission, "constituent_inbound")
	}
	return Decision{Effect: AllowWithPredicate, Scope: scope, Rule: "constituent_inbound"}
}

func channelSensitive(op Operation) bool {
	return op == OpCreate || op == OpUpdate || op == OpSend
}

func withInstance(d Decision, instance domain.Attrs) Decision {
	if instance == nil {
		return d
	}
	if !d.Scope.Matches(instance) {
		return deny(ReasonNoMatchingRule, d.Rule)
	}
	d.Effect = Allow
	return d
}
