package service

import (
	"context"
	"errors"
	"fmt"

	"chatlink/internal/domain"
)

// ConnectionService implements idempotent create-or-fetch semantics for
// connection requests between two users.
type ConnectionService struct {
	connections domain.ConnectionRepository
	users       domain.UserRepository
}

func NewConnectionService(connections domain.ConnectionRepository, users domain.UserRepository) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		users:       users,
	}
}

// RequestConnection creates a pending connection from requester to
// addressee. Two independent actors racing to establish the same
// relationship converge on one canonical row: the insert hits the symmetric
// uniqueness constraint and the loser falls back to fetching the existing
// row, regardless of who asked first or in which orientation.
func (s *ConnectionService) RequestConnection(ctx context.Context, requesterID, addresseeID string) (*domain.Connection, error) {
	if requesterID == addresseeID {
		return nil, domain.ErrSelfReference
	}

	conn := &domain.Connection{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      domain.ConnectionPending,
	}
	err := s.connections.Insert(ctx, conn)
	if err == nil {
		return conn, nil
	}
	if !errors.Is(err, domain.ErrUniqueViolation) {
		return nil, err
	}

	existing, err := s.connections.GetByPair(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, fmt.Errorf("fetch existing connection: %w", err)
	}
	// A blocked pair stays blocked; the surviving row prevents any new
	// request between these users.
	if existing.Status == domain.ConnectionBlocked {
		return nil, domain.ErrForbidden
	}
	return existing, nil
}

// RespondConnection applies an accept/reject/block decision. Only the
// addressee may respond; re-applying the same action is idempotent.
func (s *ConnectionService) RespondConnection(ctx context.Context, connectionID, responderID, action string) (*domain.Connection, error) {
	var status string
	switch action {
	case domain.ActionAccept:
		status = domain.ConnectionAccepted
	case domain.ActionReject:
		status = domain.ConnectionRejected
	case domain.ActionBlock:
		status = domain.ConnectionBlocked
	default:
		return nil, fmt.Errorf("%w: action must be accept, reject or block", domain.ErrInvalidInput)
	}

	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.AddresseeID != responderID {
		return nil, domain.ErrForbidden
	}

	return s.connections.UpdateStatus(ctx, connectionID, status)
}

// ListConnections returns the viewer's connections, optionally filtered by
// status.
func (s *ConnectionService) ListConnections(ctx context.Context, viewerID, status string) ([]*domain.Connection, error) {
	return s.connections.ListForUser(ctx, viewerID, status)
}

// ConnectionResponse is a connection enriched with the two participants'
// profile summaries and the direction relative to the viewer.
type ConnectionResponse struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	Direction string                 `json:"direction"`
	Self      *domain.ProfileSummary `json:"self,omitempty"`
	Other     *domain.ProfileSummary `json:"other,omitempty"`
}

// ToResponses enriches connections with profile data for the viewing user.
func (s *ConnectionService) ToResponses(ctx context.Context, viewerID string, conns []*domain.Connection) ([]*ConnectionResponse, error) {
	if len(conns) == 0 {
		return []*ConnectionResponse{}, nil
	}

	idSet := make(map[string]struct{})
	for _, c := range conns {
		idSet[c.RequesterID] = struct{}{}
		idSet[c.AddresseeID] = struct{}{}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}

	profile := func(id string) *domain.ProfileSummary {
		if u, ok := users[id]; ok {
			return u.Profile()
		}
		return nil
	}

	res := make([]*ConnectionResponse, 0, len(conns))
	for _, c := range conns {
		out := &ConnectionResponse{
			ID:     c.ID,
			Status: c.Status,
			Self:   profile(viewerID),
		}
		if c.RequesterID == viewerID {
			out.Direction = domain.DirectionOutgoing
			out.Other = profile(c.AddresseeID)
		} else {
			out.Direction = domain.DirectionIncoming
			out.Other = profile(c.RequesterID)
		}
		res = append(res, out)
	}
	return res, nil
}

// ToResponse enriches a single connection for the viewing user.
func (s *ConnectionService) ToResponse(ctx context.Context, viewerID string, c *domain.Connection) (*ConnectionResponse, error) {
	res, err := s.ToResponses(ctx, viewerID, []*domain.Connection{c})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}
