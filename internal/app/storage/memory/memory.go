package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/assogest/assogest/internal/app/domain/activite"
	"github.com/assogest/assogest/internal/app/domain/budget"
	"github.com/assogest/assogest/internal/app/domain/inventaire"
	"github.com/assogest/assogest/internal/app/domain/participant"
	"github.com/assogest/assogest/internal/app/domain/pedagogie"
	"github.com/assogest/assogest/internal/app/domain/projet"
	"github.com/assogest/assogest/internal/app/domain/user"
	"github.com/assogest/assogest/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users        map[int64]user.User
	userIDByMail map[string]int64
	authSessions map[string]user.Session

	perms        map[int64]user.Permission
	permIDByCode map[string]int64
	roles        map[int64]user.Role
	roleIDByName map[string]int64
	rolePerms    map[int64][]int64
	userRoles    map[int64][]int64

	subventions map[int64]budget.Subvention
	lignes      map[int64]budget.LigneBudget
	depenses    map[int64]budget.Depense

	projets map[int64]projet.Projet
	charges map[int64]projet.ChargeProjet

	ateliers  map[int64]activite.Atelier
	sessions  map[int64]activite.Session
	presences map[int64]activite.Presence
	archives  map[int64]activite.Archive

	participants map[int64]participant.Participant
	quartiers    map[int64]participant.Quartier

	articles      map[int64]inventaire.Article
	factures      map[int64]inventaire.Facture
	factureLignes map[int64]inventaire.FactureLigne
	materiels     map[int64]inventaire.Materiel

	fiches map[int64]pedagogie.Fiche
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.RBACStore = (*Store)(nil)
var _ storage.BudgetStore = (*Store)(nil)
var _ storage.ProjetStore = (*Store)(nil)
var _ storage.ActiviteStore = (*Store)(nil)
var _ storage.ParticipantStore = (*Store)(nil)
var _ storage.InventaireStore = (*Store)(nil)
var _ storage.PedagogieStore = (*Store)(nil)
var _ storage.ReportingStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		users:         make(map[int64]user.User),
		userIDByMail:  make(map[string]int64),
		authSessions:  make(map[string]user.Session),
		perms:         make(map[int64]user.Permission),
		permIDByCode:  make(map[string]int64),
		roles:         make(map[int64]user.Role),
		roleIDByName:  make(map[string]int64),
		rolePerms:     make(map[int64][]int64),
		userRoles:     make(map[int64][]int64),
		subventions:   make(map[int64]budget.Subvention),
		lignes:        make(map[int64]budget.LigneBudget),
		depenses:      make(map[int64]budget.Depense),
		projets:       make(map[int64]projet.Projet),
		charges:       make(map[int64]projet.ChargeProjet),
		ateliers:      make(map[int64]activite.Atelier),
		sessions:      make(map[int64]activite.Session),
		presences:     make(map[int64]activite.Presence),
		archives:      make(map[int64]activite.Archive),
		participants:  make(map[int64]participant.Participant),
		quartiers:     make(map[int64]participant.Quartier),
		articles:      make(map[int64]inventaire.Article),
		factures:      make(map[int64]inventaire.Facture),
		factureLignes: make(map[int64]inventaire.FactureLigne),
		materiels:     make(map[int64]inventaire.Materiel),
		fiches:        make(map[int64]pedagogie.Fiche),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByMail[u.Email]; exists {
		return user.User{}, storage.ErrDuplicate
	}
	u.ID = s.nextIDLocked()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	s.userIDByMail[u.Email] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	if u.Email != original.Email {
		if _, exists := s.userIDByMail[u.Email]; exists {
			return user.User{}, storage.ErrDuplicate
		}
		delete(s.userIDByMail, original.Email)
		s.userIDByMail[u.Email] = u.ID
	}
	u.CreatedAt = original.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByMail[email]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	delete(s.userIDByMail, u.Email)
	delete(s.userRoles, id)
	for hash, sess := range s.authSessions {
		if sess.UserID == id {
			delete(s.authSessions, hash)
		}
	}
	return nil
}

func (s *Store) CreateUserSession(_ context.Context, sess user.Session) (user.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.authSessions[sess.TokenHash]; exists {
		return user.Session{}, storage.ErrDuplicate
	}
	sess.ID = s.nextIDLocked()
	sess.CreatedAt = time.Now().UTC()
	s.authSessions[sess.TokenHash] = sess
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, hash string) (user.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.authSessions[hash]
	if !ok {
		return user.Session{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *Store) DeleteSessionByTokenHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authSessions[hash]; !ok {
		return sql.ErrNoRows
	}
	delete(s.authSessions, hash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, sess := range s.authSessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.authSessions, hash)
			n++
		}
	}
	return n, nil
}

// RBACStore implementation ----------------------------------------------------

func (s *Store) CreatePermission(_ context.Context, p user.Permission) (user.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.permIDByCode[p.Code]; exists {
		return user.Permission{}, storage.ErrDuplicate
	}
	p.ID = s.nextIDLocked()
	s.perms[p.ID] = p
	s.permIDByCode[p.Code] = p.ID
	return p, nil
}

func (s *Store) UpdatePermission(_ context.Context, p user.Permission) (user.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.perms[p.ID]
	if !ok {
		return user.Permission{}, sql.ErrNoRows
	}
	if p.Code != original.Code {
		if _, exists := s.permIDByCode[p.Code]; exists {
			return user.Permission{}, storage.ErrDuplicate
		}
		delete(s.permIDByCode, original.Code)
		s.permIDByCode[p.Code] = p.ID
	}
	s.perms[p.ID] = p
	return p, nil
}

func (s *Store) ListPermissions(_ context.Context) ([]user.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) CreateRole(_ context.Context, r user.Role) (user.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roleIDByName[r.Name]; exists {
		return user.Role{}, storage.ErrDuplicate
	}
	r.ID = s.nextIDLocked()
	s.roles[r.ID] = r
	s.roleIDByName[r.Name] = r.ID
	return r, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (user.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.roleIDByName[name]
	if !ok {
		return user.Role{}, sql.ErrNoRows
	}
	return s.roles[id], nil
}

func (s *Store) ListRoles(_ context.Context) ([]user.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.Role, 0, len(s.roles))
	for _, r := range s.roles {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) SetRolePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return sql.ErrNoRows
	}
	s.rolePerms[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID int64) ([]user.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.roles[roleID]; !ok {
		return nil, sql.ErrNoRows
	}
	result := make([]user.Permission, 0, len(s.rolePerms[roleID]))
	for _, pid := range s.rolePerms[roleID] {
		if p, ok := s.perms[pid]; ok {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) AssignRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return sql.ErrNoRows
	}
	if _, ok := s.roles[roleID]; !ok {
		return sql.ErrNoRows
	}
	for _, rid := range s.userRoles[userID] {
		if rid == roleID {
			return nil
		}
	}
	s.userRoles[userID] = append(s.userRoles[userID], roleID)
	return nil
}

func (s *Store) ReplaceUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return sql.ErrNoRows
	}
	for _, rid := range roleIDs {
		if _, ok := s.roles[rid]; !ok {
			return sql.ErrNoRows
		}
	}
	s.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

func (s *Store) ListUserRoles(_ context.Context, userID int64) ([]user.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.Role, 0, len(s.userRoles[userID]))
	for _, rid := range s.userRoles[userID] {
		if r, ok := s.roles[rid]; ok {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) ListUserPermissions(_ context.Context, userID int64) ([]user.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	var result []user.Permission
	for _, rid := range s.userRoles[userID] {
		for _, pid := range s.rolePerms[rid] {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}
			if p, ok := s.perms[pid]; ok {
				result = append(result, p)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// BudgetStore implementation --------------------------------------------------

func (s *Store) CreateSubvention(_ context.Context, sub budget.Subvention) (budget.Subvention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.ID = s.nextIDLocked()
	sub.CreatedAt = time.Now().UTC()
	s.subventions[sub.ID] = sub
	return sub, nil
}

func (s *Store) UpdateSubvention(_ context.Context, sub budget.Subvention) (budget.Subvention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.subventions[sub.ID]
	if !ok {
		return budget.Subvention{}, sql.ErrNoRows
	}
	sub.CreatedAt = original.CreatedAt
	s.subventions[sub.ID] = sub
	return sub, nil
}

func (s *Store) GetSubvention(_ context.Context, id int64) (budget.Subvention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subventions[id]
	if !ok {
		return budget.Subvention{}, sql.ErrNoRows
	}
	return sub, nil
}

func (s *Store) ListSubventions(_ context.Context) ([]budget.Subvention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]budget.Subvention, 0, len(s.subventions))
	for _, sub := range s.subventions {
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteSubvention(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subventions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.subventions, id)
	return nil
}

func (s *Store) CreateLigneBudget(_ context.Context, l budget.LigneBudget) (budget.LigneBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subventions[l.SubventionID]; !ok {
		return budget.LigneBudget{}, sql.ErrNoRows
	}
	l.ID = s.nextIDLocked()
	l.CreatedAt = time.Now().UTC()
	s.lignes[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLigneBudget(_ context.Context, l budget.LigneBudget) (budget.LigneBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.lignes[l.ID]
	if !ok {
		return budget.LigneBudget{}, sql.ErrNoRows
	}
	l.CreatedAt = original.CreatedAt
	s.lignes[l.ID] = l
	return l, nil
}

func (s *Store) GetLigneBudget(_ context.Context, id int64) (budget.LigneBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lignes[id]
	if !ok {
		return budget.LigneBudget{}, sql.ErrNoRows
	}
	return l, nil
}

func (s *Store) ListLignesBudget(_ context.Context, subventionID int64) ([]budget.LigneBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []budget.LigneBudget
	for _, l := range s.lignes {
		if subventionID != 0 && l.SubventionID != subventionID {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteLigneBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lignes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.lignes, id)
	return nil
}

func cloneDepense(d budget.Depense) budget.Depense {
	d.LigneBudgetID = cloneInt64(d.LigneBudgetID)
	d.ChargeProjetID = cloneInt64(d.ChargeProjetID)
	d.FactureLigneID = cloneInt64(d.FactureLigneID)
	d.DateDepense = cloneTime(d.DateDepense)
	return d
}

func (s *Store) CreateDepense(_ context.Context, d budget.Depense) (budget.Depense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.nextIDLocked()
	d.CreatedAt = time.Now().UTC()
	d = cloneDepense(d)
	s.depenses[d.ID] = d
	return cloneDepense(d), nil
}

func (s *Store) UpdateDepense(_ context.Context, d budget.Depense) (budget.Depense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.depenses[d.ID]
	if !ok {
		return budget.Depense{}, sql.ErrNoRows
	}
	d.CreatedAt = original.CreatedAt
	d = cloneDepense(d)
	s.depenses[d.ID] = d
	return cloneDepense(d), nil
}

func (s *Store) GetDepense(_ context.Context, id int64) (budget.Depense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.depenses[id]
	if !ok {
		return budget.Depense{}, sql.ErrNoRows
	}
	return cloneDepense(d), nil
}

func (s *Store) ListDepenses(_ context.Context, filter storage.DepenseFilter) ([]budget.Depense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []budget.Depense
	for _, d := range s.depenses {
		if filter.LigneBudgetID != 0 && (d.LigneBudgetID == nil || *d.LigneBudgetID != filter.LigneBudgetID) {
			continue
		}
		if filter.ChargeProjetID != 0 && (d.ChargeProjetID == nil || *d.ChargeProjetID != filter.ChargeProjetID) {
			continue
		}
		if filter.FactureLigneID != 0 && (d.FactureLigneID == nil || *d.FactureLigneID != filter.FactureLigneID) {
			continue
		}
		if filter.Annee != 0 && (d.DateDepense == nil || d.DateDepense.Year() != filter.Annee) {
			continue
		}
		result = append(result, cloneDepense(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteDepense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.depenses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.depenses, id)
	return nil
}

// ProjetStore implementation --------------------------------------------------

func (s *Store) CreateProjet(_ context.Context, p projet.Projet) (projet.Projet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextIDLocked()
	p.CreatedAt = time.Now().UTC()
	s.projets[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProjet(_ context.Context, p projet.Projet) (projet.Projet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.projets[p.ID]
	if !ok {
		return projet.Projet{}, sql.ErrNoRows
	}
	p.CreatedAt = original.CreatedAt
	s.projets[p.ID] = p
	return p, nil
}

func (s *Store) GetProjet(_ context.Context, id int64) (projet.Projet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projets[id]
	if !ok {
		return projet.Projet{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) ListProjets(_ context.Context) ([]projet.Projet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]projet.Projet, 0, len(s.projets))
	for _, p := range s.projets {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteProjet(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projets[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.projets, id)
	return nil
}

func (s *Store) CreateChargeProjet(_ context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projets[c.ProjetID]; !ok {
		return projet.ChargeProjet{}, sql.ErrNoRows
	}
	c.ID = s.nextIDLocked()
	c.CreatedAt = time.Now().UTC()
	s.charges[c.ID] = c
	return c, nil
}

func (s *Store) UpdateChargeProjet(_ context.Context, c projet.ChargeProjet) (projet.ChargeProjet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.charges[c.ID]
	if !ok {
		return projet.ChargeProjet{}, sql.ErrNoRows
	}
	c.CreatedAt = original.CreatedAt
	s.charges[c.ID] = c
	return c, nil
}

func (s *Store) GetChargeProjet(_ context.Context, id int64) (projet.ChargeProjet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.charges[id]
	if !ok {
		return projet.ChargeProjet{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *Store) ListChargesProjet(_ context.Context, projetID int64) ([]projet.ChargeProjet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []projet.ChargeProjet
	for _, c := range s.charges {
		if projetID != 0 && c.ProjetID != projetID {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteChargeProjet(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.charges[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.charges, id)
	return nil
}

// ActiviteStore implementation ------------------------------------------------

func cloneAtelier(a activite.Atelier) activite.Atelier {
	a.DeletedAt = cloneTime(a.DeletedAt)
	return a
}

func (s *Store) CreateAtelier(_ context.Context, a activite.Atelier) (activite.Atelier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextIDLocked()
	a.CreatedAt = time.Now().UTC()
	a.IsDeleted = false
	a.DeletedAt = nil
	s.ateliers[a.ID] = a
	return cloneAtelier(a), nil
}

func (s *Store) UpdateAtelier(_ context.Context, a activite.Atelier) (activite.Atelier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.ateliers[a.ID]
	if !ok {
		return activite.Atelier{}, sql.ErrNoRows
	}
	a.CreatedAt = original.CreatedAt
	a.IsDeleted = original.IsDeleted
	a.DeletedAt = original.DeletedAt
	s.ateliers[a.ID] = cloneAtelier(a)
	return cloneAtelier(a), nil
}

func (s *Store) GetAtelier(_ context.Context, id int64) (activite.Atelier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.ateliers[id]
	if !ok {
		return activite.Atelier{}, sql.ErrNoRows
	}
	return cloneAtelier(a), nil
}

func (s *Store) GetAtelierByExternalRef(_ context.Context, ref string) (activite.Atelier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.ateliers {
		if a.ExternalRef != "" && a.ExternalRef == ref {
			return cloneAtelier(a), nil
		}
	}
	return activite.Atelier{}, sql.ErrNoRows
}

func (s *Store) ListAteliers(_ context.Context, includeDeleted bool) ([]activite.Atelier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activite.Atelier
	for _, a := range s.ateliers {
		if !includeDeleted && a.IsDeleted {
			continue
		}
		result = append(result, cloneAtelier(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SoftDeleteAtelier(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ateliers[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.IsDeleted = true
	a.DeletedAt = &at
	s.ateliers[id] = a
	return nil
}

func (s *Store) RestoreAtelier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.ateliers[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.IsDeleted = false
	a.DeletedAt = nil
	s.ateliers[id] = a
	return nil
}

func (s *Store) PurgeAteliers(_ context.Context, deletedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.ateliers {
		if !a.IsDeleted || a.DeletedAt == nil || !a.DeletedAt.Before(deletedBefore) {
			continue
		}
		hasSessions := false
		for _, sess := range s.sessions {
			if sess.AtelierID == id {
				hasSessions = true
				break
			}
		}
		if hasSessions {
			continue
		}
		delete(s.ateliers, id)
		n++
	}
	return n, nil
}

func cloneSession(sess activite.Session) activite.Session {
	sess.DeletedAt = cloneTime(sess.DeletedAt)
	sess.KioskOpenedAt = cloneTime(sess.KioskOpenedAt)
	return sess
}

func (s *Store) CreateSession(_ context.Context, sess activite.Session) (activite.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ateliers[sess.AtelierID]; !ok {
		return activite.Session{}, sql.ErrNoRows
	}
	sess.ID = s.nextIDLocked()
	sess.CreatedAt = time.Now().UTC()
	sess.IsDeleted = false
	sess.DeletedAt = nil
	s.sessions[sess.ID] = cloneSession(sess)
	return cloneSession(sess), nil
}

func (s *Store) UpdateSession(_ context.Context, sess activite.Session) (activite.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.sessions[sess.ID]
	if !ok {
		return activite.Session{}, sql.ErrNoRows
	}
	sess.CreatedAt = original.CreatedAt
	sess.IsDeleted = original.IsDeleted
	sess.DeletedAt = original.DeletedAt
	s.sessions[sess.ID] = cloneSession(sess)
	return cloneSession(sess), nil
}

func (s *Store) GetSession(_ context.Context, id int64) (activite.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return activite.Session{}, sql.ErrNoRows
	}
	return cloneSession(sess), nil
}

func (s *Store) GetSessionByKioskToken(_ context.Context, token string) (activite.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.KioskToken != "" && sess.KioskToken == token {
			return cloneSession(sess), nil
		}
	}
	return activite.Session{}, sql.ErrNoRows
}

func (s *Store) ListSessions(_ context.Context, atelierID int64, includeDeleted bool) ([]activite.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activite.Session
	for _, sess := range s.sessions {
		if atelierID != 0 && sess.AtelierID != atelierID {
			continue
		}
		if !includeDeleted && sess.IsDeleted {
			continue
		}
		result = append(result, cloneSession(sess))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SoftDeleteSession(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	sess.IsDeleted = true
	sess.DeletedAt = &at
	sess.KioskOpen = false
	s.sessions[id] = sess
	return nil
}

func (s *Store) RestoreSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	sess.IsDeleted = false
	sess.DeletedAt = nil
	s.sessions[id] = sess
	return nil
}

func (s *Store) PurgeSessions(_ context.Context, deletedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if !sess.IsDeleted || sess.DeletedAt == nil || !sess.DeletedAt.Before(deletedBefore) {
			continue
		}
		for pid, p := range s.presences {
			if p.SessionID == id {
				delete(s.presences, pid)
			}
		}
		delete(s.sessions, id)
		n++
	}
	return n, nil
}

func clonePresence(p activite.Presence) activite.Presence {
	p.SignedAt = cloneTime(p.SignedAt)
	return p
}

func (s *Store) CreatePresence(_ context.Context, p activite.Presence) (activite.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[p.SessionID]; !ok {
		return activite.Presence{}, sql.ErrNoRows
	}
	if _, ok := s.participants[p.ParticipantID]; !ok {
		return activite.Presence{}, sql.ErrNoRows
	}
	for _, existing := range s.presences {
		if existing.SessionID == p.SessionID && existing.ParticipantID == p.ParticipantID {
			return activite.Presence{}, storage.ErrDuplicate
		}
	}
	p.ID = s.nextIDLocked()
	p.CreatedAt = time.Now().UTC()
	s.presences[p.ID] = clonePresence(p)
	return clonePresence(p), nil
}

func (s *Store) ListPresences(_ context.Context, sessionID int64) ([]activite.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activite.Presence
	for _, p := range s.presences {
		if sessionID != 0 && p.SessionID != sessionID {
			continue
		}
		result = append(result, clonePresence(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeletePresence(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presences[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.presences, id)
	return nil
}

func cloneArchive(a activite.Archive) activite.Archive {
	a.SessionID = cloneInt64(a.SessionID)
	a.DateSession = cloneTime(a.DateSession)
	a.DeletedAt = cloneTime(a.DeletedAt)
	return a
}

func (s *Store) CreateArchive(_ context.Context, a activite.Archive) (activite.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextIDLocked()
	a.CreatedAt = time.Now().UTC()
	a.IsDeleted = false
	a.DeletedAt = nil
	s.archives[a.ID] = cloneArchive(a)
	return cloneArchive(a), nil
}

func (s *Store) GetArchive(_ context.Context, id int64) (activite.Archive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.archives[id]
	if !ok {
		return activite.Archive{}, sql.ErrNoRows
	}
	return cloneArchive(a), nil
}

func (s *Store) ListArchives(_ context.Context, includeDeleted bool) ([]activite.Archive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activite.Archive
	for _, a := range s.archives {
		if !includeDeleted && a.IsDeleted {
			continue
		}
		result = append(result, cloneArchive(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SoftDeleteArchive(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.archives[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.IsDeleted = true
	a.DeletedAt = &at
	s.archives[id] = a
	return nil
}

func (s *Store) RestoreArchive(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.archives[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.IsDeleted = false
	a.DeletedAt = nil
	s.archives[id] = a
	return nil
}

func (s *Store) PurgeArchives(_ context.Context, deletedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.archives {
		if a.IsDeleted && a.DeletedAt != nil && a.DeletedAt.Before(deletedBefore) {
			delete(s.archives, id)
			n++
		}
	}
	return n, nil
}

// ParticipantStore implementation ---------------------------------------------

func cloneParticipant(p participant.Participant) participant.Participant {
	p.QuartierID = cloneInt64(p.QuartierID)
	p.DateNaissance = cloneTime(p.DateNaissance)
	return p
}

func (s *Store) CreateParticipant(_ context.Context, p participant.Participant) (participant.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextIDLocked()
	p.CreatedAt = time.Now().UTC()
	s.participants[p.ID] = cloneParticipant(p)
	return cloneParticipant(p), nil
}

func (s *Store) UpdateParticipant(_ context.Context, p participant.Participant) (participant.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.participants[p.ID]
	if !ok {
		return participant.Participant{}, sql.ErrNoRows
	}
	p.CreatedAt = original.CreatedAt
	s.participants[p.ID] = cloneParticipant(p)
	return cloneParticipant(p), nil
}

func (s *Store) GetParticipant(_ context.Context, id int64) (participant.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return participant.Participant{}, sql.ErrNoRows
	}
	return cloneParticipant(p), nil
}

func (s *Store) ListParticipants(_ context.Context, search string) ([]participant.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	var result []participant.Participant
	for _, p := range s.participants {
		if needle != "" {
			haystack := strings.ToLower(p.Nom + " " + p.Prenom + " " + p.Email)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		result = append(result, cloneParticipant(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteParticipant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[id]; !ok {
		return sql.ErrNoRows
	}
	for _, p := range s.presences {
		if p.ParticipantID == id {
			return storage.ErrDuplicate
		}
	}
	delete(s.participants, id)
	return nil
}

func (s *Store) CreateQuartier(_ context.Context, q participant.Quartier) (participant.Quartier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.quartiers {
		if existing.Nom == q.Nom {
			return participant.Quartier{}, storage.ErrDuplicate
		}
	}
	q.ID = s.nextIDLocked()
	s.quartiers[q.ID] = q
	return q, nil
}

func (s *Store) GetQuartier(_ context.Context, id int64) (participant.Quartier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quartiers[id]
	if !ok {
		return participant.Quartier{}, sql.ErrNoRows
	}
	return q, nil
}

func (s *Store) ListQuartiers(_ context.Context) ([]participant.Quartier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]participant.Quartier, 0, len(s.quartiers))
	for _, q := range s.quartiers {
		result = append(result, q)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Nom < result[j].Nom })
	return result, nil
}

func (s *Store) DeleteQuartier(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quartiers[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.quartiers, id)
	return nil
}

// InventaireStore implementation ----------------------------------------------

func (s *Store) CreateArticle(_ context.Context, a inventaire.Article) (inventaire.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextIDLocked()
	a.CreatedAt = time.Now().UTC()
	s.articles[a.ID] = a
	return a, nil
}

func (s *Store) UpdateArticle(_ context.Context, a inventaire.Article) (inventaire.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.articles[a.ID]
	if !ok {
		return inventaire.Article{}, sql.ErrNoRows
	}
	a.CreatedAt = original.CreatedAt
	s.articles[a.ID] = a
	return a, nil
}

func (s *Store) GetArticle(_ context.Context, id int64) (inventaire.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return inventaire.Article{}, sql.ErrNoRows
	}
	return a, nil
}

func (s *Store) ListArticles(_ context.Context) ([]inventaire.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]inventaire.Article, 0, len(s.articles))
	for _, a := range s.articles {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteArticle(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.articles[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.articles, id)
	return nil
}

func (s *Store) AdjustArticleStock(_ context.Context, id int64, delta float64) (inventaire.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[id]
	if !ok {
		return inventaire.Article{}, sql.ErrNoRows
	}
	a.Stock += delta
	s.articles[id] = a
	return a, nil
}

func cloneFacture(f inventaire.Facture) inventaire.Facture {
	f.DateFacture = cloneTime(f.DateFacture)
	lignes := make([]inventaire.FactureLigne, len(f.Lignes))
	for i, l := range f.Lignes {
		l.ArticleID = cloneInt64(l.ArticleID)
		lignes[i] = l
	}
	f.Lignes = lignes
	return f
}

func (s *Store) CreateFacture(_ context.Context, f inventaire.Facture) (inventaire.Facture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lignes := f.Lignes
	f.Lignes = nil
	f.ID = s.nextIDLocked()
	f.CreatedAt = time.Now().UTC()
	s.factures[f.ID] = cloneFacture(f)

	for _, l := range lignes {
		l.ID = s.nextIDLocked()
		l.FactureID = f.ID
		l.ArticleID = cloneInt64(l.ArticleID)
		s.factureLignes[l.ID] = l
		f.Lignes = append(f.Lignes, l)
	}
	return cloneFacture(f), nil
}

func (s *Store) GetFacture(_ context.Context, id int64) (inventaire.Facture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.factures[id]
	if !ok {
		return inventaire.Facture{}, sql.ErrNoRows
	}
	for _, l := range s.factureLignes {
		if l.FactureID == id {
			f.Lignes = append(f.Lignes, l)
		}
	}
	sort.Slice(f.Lignes, func(i, j int) bool { return f.Lignes[i].ID < f.Lignes[j].ID })
	return cloneFacture(f), nil
}

func (s *Store) ListFactures(_ context.Context) ([]inventaire.Facture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]inventaire.Facture, 0, len(s.factures))
	for _, f := range s.factures {
		f.Lignes = nil
		result = append(result, cloneFacture(f))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteFacture(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factures[id]; !ok {
		return sql.ErrNoRows
	}
	for lid, l := range s.factureLignes {
		if l.FactureID == id {
			delete(s.factureLignes, lid)
		}
	}
	delete(s.factures, id)
	return nil
}

func (s *Store) CreateFactureLigne(_ context.Context, l inventaire.FactureLigne) (inventaire.FactureLigne, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factures[l.FactureID]; !ok {
		return inventaire.FactureLigne{}, sql.ErrNoRows
	}
	l.ID = s.nextIDLocked()
	l.ArticleID = cloneInt64(l.ArticleID)
	s.factureLignes[l.ID] = l
	return l, nil
}

func (s *Store) GetFactureLigne(_ context.Context, id int64) (inventaire.FactureLigne, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.factureLignes[id]
	if !ok {
		return inventaire.FactureLigne{}, sql.ErrNoRows
	}
	l.ArticleID = cloneInt64(l.ArticleID)
	return l, nil
}

func (s *Store) ListFactureLignes(_ context.Context, factureID int64) ([]inventaire.FactureLigne, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []inventaire.FactureLigne
	for _, l := range s.factureLignes {
		if factureID != 0 && l.FactureID != factureID {
			continue
		}
		l.ArticleID = cloneInt64(l.ArticleID)
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteFactureLigne(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factureLignes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.factureLignes, id)
	return nil
}

func (s *Store) CreateMateriel(_ context.Context, m inventaire.Materiel) (inventaire.Materiel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.nextIDLocked()
	m.CreatedAt = time.Now().UTC()
	s.materiels[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMateriel(_ context.Context, m inventaire.Materiel) (inventaire.Materiel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.materiels[m.ID]
	if !ok {
		return inventaire.Materiel{}, sql.ErrNoRows
	}
	m.CreatedAt = original.CreatedAt
	s.materiels[m.ID] = m
	return m, nil
}

func (s *Store) GetMateriel(_ context.Context, id int64) (inventaire.Materiel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.materiels[id]
	if !ok {
		return inventaire.Materiel{}, sql.ErrNoRows
	}
	return m, nil
}

func (s *Store) ListMateriels(_ context.Context) ([]inventaire.Materiel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]inventaire.Materiel, 0, len(s.materiels))
	for _, m := range s.materiels {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteMateriel(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.materiels[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.materiels, id)
	return nil
}

// PedagogieStore implementation -----------------------------------------------

func cloneFiche(f pedagogie.Fiche) pedagogie.Fiche {
	f.AtelierID = cloneInt64(f.AtelierID)
	f.AuteurID = cloneInt64(f.AuteurID)
	return f
}

func (s *Store) CreateFiche(_ context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.nextIDLocked()
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	s.fiches[f.ID] = cloneFiche(f)
	return cloneFiche(f), nil
}

func (s *Store) UpdateFiche(_ context.Context, f pedagogie.Fiche) (pedagogie.Fiche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.fiches[f.ID]
	if !ok {
		return pedagogie.Fiche{}, sql.ErrNoRows
	}
	f.CreatedAt = original.CreatedAt
	f.UpdatedAt = time.Now().UTC()
	s.fiches[f.ID] = cloneFiche(f)
	return cloneFiche(f), nil
}

func (s *Store) GetFiche(_ context.Context, id int64) (pedagogie.Fiche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fiches[id]
	if !ok {
		return pedagogie.Fiche{}, sql.ErrNoRows
	}
	return cloneFiche(f), nil
}

func (s *Store) ListFiches(_ context.Context, secteur string) ([]pedagogie.Fiche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pedagogie.Fiche
	for _, f := range s.fiches {
		if secteur != "" && f.Secteur != secteur {
			continue
		}
		result = append(result, cloneFiche(f))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteFiche(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fiches[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.fiches, id)
	return nil
}
