package database

import (
	"context"
	"errors"

	"bugalou/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrDuplicatePhone = errors.New("another contact already uses this phone number")

func (s *Store) ListContacts(ctx context.Context, companyID string) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.db(ctx).Where("company_id = ?", companyID).Order("created_at DESC").Find(&contacts).Error
	return contacts, err
}

// GetContact returns nil, nil when the company owns no such contact.
func (s *Store) GetContact(ctx context.Context, companyID, contactID string) (*models.Contact, error) {
	var contact models.Contact
	found, err := first(s.db(ctx).Where("id = ? AND company_id = ?", contactID, companyID), &contact)
	if err != nil || !found {
		return nil, err
	}
	return &contact, nil
}

// ContactInput carries contact fields; nil and empty JSON mean "leave as is"
// on update and "unset" on create.
type ContactInput struct {
	Phone      string
	Name       *string
	Email      *string
	Tags       datatypes.JSON
	Attributes datatypes.JSON
}

// UpsertContact finds the contact by (company, phone) and applies the given
// fields, or creates it.
func (s *Store) UpsertContact(ctx context.Context, companyID string, in ContactInput) (*models.Contact, error) {
	var contact models.Contact
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := first(tx.Where("company_id = ? AND phone = ?", companyID, in.Phone), &contact)
		if err != nil {
			return err
		}
		if !found {
			contact = models.Contact{
				CompanyID:  companyID,
				Phone:      in.Phone,
				Name:       in.Name,
				Email:      in.Email,
				Tags:       in.Tags,
				Attributes: in.Attributes,
			}
			return tx.Create(&contact).Error
		}

		updates := contactUpdates(in)
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&contact).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", contact.ID).First(&contact).Error
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func contactUpdates(in ContactInput) map[string]interface{} {
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if len(in.Tags) > 0 {
		updates["tags"] = in.Tags
	}
	if len(in.Attributes) > 0 {
		updates["attributes"] = in.Attributes
	}
	return updates
}

// UpdateContact changes a contact, including its phone number.
func (s *Store) UpdateContact(ctx context.Context, companyID, contactID string, in ContactInput) (*models.Contact, error) {
	contact, err := s.GetContact(ctx, companyID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, ErrNotFound
	}

	if in.Phone != "" && in.Phone != contact.Phone {
		var count int64
		if err := s.db(ctx).Model(&models.Contact{}).
			Where("company_id = ? AND phone = ? AND id <> ?", companyID, in.Phone, contactID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrDuplicatePhone
		}
	}

	updates := contactUpdates(in)
	if in.Phone != "" {
		updates["phone"] = in.Phone
	}
	if len(updates) > 0 {
		if err := s.db(ctx).Model(contact).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetContact(ctx, companyID, contactID)
}

// DeleteContact detaches the contact's messages and events before removing it.
func (s *Store) DeleteContact(ctx context.Context, companyID, contactID string) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("contact_id = ? AND company_id = ?", contactID, companyID).
			Update("contact_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Event{}).
			Where("contact_id = ? AND company_id = ?", contactID, companyID).
			Update("contact_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND company_id = ?", contactID, companyID).Delete(&models.Contact{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindOrCreateContact returns the contact with this phone, creating it with
// the given name when the company does not know the number yet.
func (s *Store) FindOrCreateContact(ctx context.Context, companyID, phone, name string) (*models.Contact, error) {
	var contact models.Contact
	found, err := first(s.db(ctx).Where("company_id = ? AND phone = ?", companyID, phone), &contact)
	if err != nil {
		return nil, err
	}
	if found {
		return &contact, nil
	}

	contact = models.Contact{CompanyID: companyID, Phone: phone, Name: &name}
	if err := s.db(ctx).Create(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}
