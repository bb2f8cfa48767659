package service

import (
	"context"

	"VISO_Collective/internal/gateway"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"
)

// MemberService 成员资料只读
type MemberService struct {
	gw *gateway.Gateway
}

func NewMemberService(gw *gateway.Gateway) *MemberService {
	return &MemberService{gw: gw}
}

func (s *MemberService) List(ctx context.Context) ([]model.Member, error) {
	recs, err := store.Collect(s.gw.List(ctx, model.TableMembers, store.Query{}))
	if err != nil {
		return nil, err
	}
	out := make([]model.Member, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.MemberFromRecord(r))
	}
	return out, nil
}

func (s *MemberService) Get(ctx context.Context, id string) (model.Member, error) {
	rec, err := s.gw.Get(ctx, model.TableMembers, id)
	if err != nil {
		return model.Member{}, err
	}
	return model.MemberFromRecord(rec), nil
}
