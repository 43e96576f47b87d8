package filestore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type ContactRepository interface {
	List(userID int64) ([]domain.Contact, error)
	Add(userID int64, contact domain.Contact) error
	ByIDs(userID int64, ids []string) ([]domain.Contact, error)
	Save(userID int64, contacts []domain.Contact) error
}

type contactRepository struct {
	paths storage.Paths
	locks *storage.KeyLock
}

func NewContactRepository(paths storage.Paths, locks *storage.KeyLock) ContactRepository {
	return &contactRepository{paths: paths, locks: locks}
}

// List never fails on corruption: it returns the largest valid subset it can
// parse (re-persisting the healed file) or an empty list.
func (r *contactRepository) List(userID int64) ([]domain.Contact, error) {
	unlock := r.locks.Lock("contacts", userID)
	defer unlock()
	return r.listLocked(userID)
}

func (r *contactRepository) listLocked(userID int64) ([]domain.Contact, error) {
	path := r.paths.ContactsFile(userID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Contact{}, nil
		}
		return nil, fmt.Errorf("read contacts: %w", err)
	}

	var contacts []domain.Contact
	if jsonErr := json.Unmarshal(raw, &contacts); jsonErr == nil {
		return contacts, nil
	}

	recovered, recErr := storage.DecodeListLenient[domain.Contact](raw, (*domain.Contact).Valid)
	if recErr != nil {
		logger.Warn("contacts file corrupt beyond recovery, discarding", "user_id", userID)
		os.Remove(path)
		return []domain.Contact{}, nil
	}

	logger.Warn("contacts file recovered leniently", "user_id", userID, "kept", len(recovered))
	if err := storage.WriteJSON(path, recovered); err != nil {
		logger.Error("failed to heal contacts file", "user_id", userID, "error", err)
	}
	return recovered, nil
}

func (r *contactRepository) Add(userID int64, contact domain.Contact) error {
	unlock := r.locks.Lock("contacts", userID)
	defer unlock()

	contacts, err := r.listLocked(userID)
	if err != nil {
		return err
	}
	contacts = append(contacts, contact)
	return storage.WriteJSON(r.paths.ContactsFile(userID), contacts)
}

func (r *contactRepository) ByIDs(userID int64, ids []string) ([]domain.Contact, error) {
	contacts, err := r.List(userID)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	matched := make([]domain.Contact, 0, len(ids))
	for _, c := range contacts {
		if want[c.ID] {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (r *contactRepository) Save(userID int64, contacts []domain.Contact) error {
	unlock := r.locks.Lock("contacts", userID)
	defer unlock()
	return storage.WriteJSON(r.paths.ContactsFile(userID), contacts)
}
