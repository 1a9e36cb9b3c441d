package booking

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/MarkoPoloResearchLab/voyages/pkg/query"
)

// CreateVoyage publishes a listing with no seats reserved.
func (service *Service) CreateVoyage(ctx context.Context, actor Actor, input VoyageInput) (Voyage, error) {
	var created Voyage
	operationError := func() error {
		if !actor.CanManageCatalog() {
			return ErrForbidden
		}
		voyageID, err := NewVoyageID(service.newID())
		if err != nil {
			return err
		}
		now := service.nowFn().UTC()
		voyage := Voyage{
			ID:            voyageID,
			Title:         strings.TrimSpace(input.Title),
			Description:   input.Description,
			Destination:   strings.TrimSpace(input.Destination),
			City:          input.City,
			Country:       input.Country,
			Price:         input.Price,
			DurationDays:  input.DurationDays,
			DepartureAt:   input.DepartureAt.UTC(),
			ReturnAt:      input.ReturnAt.UTC(),
			TotalCapacity: input.TotalCapacity,
			ReservedCount: 0,
			Active:        true,
			Status:        VoyageStatusActive,
			CreatedBy:     actor.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := voyage.validate(); err != nil {
			return err
		}
		created, err = service.store.CreateVoyage(ctx, voyage)
		return err
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateVoyage,
		ActorID:   actor.ID,
		VoyageID:  created.ID,
		Error:     operationError,
	})
	if operationError != nil {
		return Voyage{}, operationError
	}
	return created, nil
}

// GetVoyage returns a voyage by id, including deactivated ones.
func (service *Service) GetVoyage(ctx context.Context, voyageID VoyageID) (Voyage, error) {
	return service.store.GetVoyage(ctx, voyageID)
}

// ListVoyages returns one page of active voyages.
func (service *Service) ListVoyages(ctx context.Context, params url.Values) (Page[Voyage], error) {
	plan := query.Shape(VoyageSchema(), params).Where(query.Equal(columnActive, true))
	voyages, count, err := service.store.ListVoyages(ctx, plan)
	if err != nil {
		return Page[Voyage]{}, err
	}
	return Page[Voyage]{
		Items:      voyages,
		Count:      count,
		Pagination: plan.Paginate(count),
		Plan:       plan,
	}, nil
}

// UpdateVoyage lets the creator edit a listing. Capacity changes go through
// the ledger; existing reservation prices are not touched.
func (service *Service) UpdateVoyage(ctx context.Context, actor Actor, voyageID VoyageID, patch VoyagePatch) (Voyage, error) {
	var updated Voyage
	operationError := func() error {
		current, err := service.store.GetVoyage(ctx, voyageID)
		if err != nil {
			return err
		}
		if current.CreatedBy != actor.ID {
			return ErrForbidden
		}
		candidate := patch.apply(current)
		if candidate.Status != current.Status {
			if _, err := ParseVoyageStatus(string(candidate.Status)); err != nil {
				return err
			}
		}
		if err := candidate.validate(); err != nil {
			return err
		}
		resized := candidate.TotalCapacity != current.TotalCapacity
		if resized {
			if err := service.ledger.Resize(ctx, voyageID, candidate.TotalCapacity); err != nil {
				return err
			}
		}
		candidate.UpdatedAt = service.nowFn().UTC()
		updated, err = service.store.UpdateVoyage(ctx, candidate)
		if err != nil && resized {
			if restoreErr := service.ledger.Resize(ctx, voyageID, current.TotalCapacity); restoreErr != nil {
				return errors.Join(err, restoreErr)
			}
		}
		return err
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateVoyage,
		ActorID:   actor.ID,
		VoyageID:  voyageID,
		Error:     operationError,
	})
	if operationError != nil {
		return Voyage{}, operationError
	}
	return updated, nil
}

// DeactivateVoyage soft-deletes a listing so no new reservations can target it.
func (service *Service) DeactivateVoyage(ctx context.Context, actor Actor, voyageID VoyageID) (Voyage, error) {
	var deactivated Voyage
	operationError := func() error {
		if !actor.CanManageCatalog() {
			return ErrForbidden
		}
		var err error
		deactivated, err = service.store.SetVoyageActive(ctx, voyageID, false)
		return err
	}()
	service.logOperation(ctx, OperationLog{
		Operation: operationDeactivateVoyage,
		ActorID:   actor.ID,
		VoyageID:  voyageID,
		Error:     operationError,
	})
	if operationError != nil {
		return Voyage{}, operationError
	}
	return deactivated, nil
}
