package service

import (
	"context"
	"time"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/gateway"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"
)

type PostService struct {
	gw  *gateway.Gateway
	now func() time.Time
}

type CreatePostInput struct {
	Title    string             `json:"title" validate:"required"`
	Content  string             `json:"content" validate:"required"`
	Category model.PostCategory `json:"category" validate:"required"`
	Tags     []string           `json:"tags"`
	Images   []string           `json:"images" validate:"omitempty,dive,url"`
}

// UpdatePostInput 空字符串表示不修改；切片为 nil 表示不修改
type UpdatePostInput struct {
	Title    string             `json:"title"`
	Content  string             `json:"content"`
	Category model.PostCategory `json:"category"`
	Tags     []string           `json:"tags"`
	Images   []string           `json:"images" validate:"omitempty,dive,url"`
}

func NewPostService(gw *gateway.Gateway) *PostService {
	return &PostService{gw: gw, now: time.Now}
}

var postsByNewest = []store.Sort{{Field: model.PostCreatedAt, Direction: store.Desc}}

// List 全部帖子，按创建时间倒序；category 为空不过滤
func (s *PostService) List(ctx context.Context, category model.PostCategory) ([]model.Post, error) {
	recs, err := store.Collect(s.gw.List(ctx, model.TablePosts, store.Query{
		Filter: categoryFilter(category),
		Sort:   postsByNewest,
	}))
	if err != nil {
		return nil, err
	}
	return toPosts(recs), nil
}

// ListMine 当前用户自己的帖子
func (s *PostService) ListMine(ctx context.Context, caller model.Caller, category model.PostCategory) ([]model.Post, error) {
	seq, err := s.gw.ListOwned(ctx, model.TablePosts, caller, store.Query{
		Filter: categoryFilter(category),
		Sort:   postsByNewest,
	})
	if err != nil {
		return nil, err
	}
	recs, err := store.Collect(seq)
	if err != nil {
		return nil, err
	}
	return toPosts(recs), nil
}

func (s *PostService) Get(ctx context.Context, id string) (model.Post, error) {
	rec, err := s.gw.Get(ctx, model.TablePosts, id)
	if err != nil {
		return model.Post{}, err
	}
	return model.PostFromRecord(rec), nil
}

func (s *PostService) Create(ctx context.Context, caller model.Caller, in CreatePostInput) (model.Post, error) {
	if !caller.Authenticated() {
		return model.Post{}, model.ErrUnauthenticated
	}
	if err := validateInput(in); err != nil {
		return model.Post{}, err
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	rec, err := s.gw.Create(ctx, model.TablePosts, model.Fields{
		model.PostTitle:     in.Title,
		model.PostContent:   in.Content,
		model.PostCategoryF: string(in.Category),
		model.PostTags:      tags,
		model.PostImages:    model.Attachments(in.Images),
		model.PostCreatedAt: s.now().UTC().Format(time.RFC3339),
	}, caller)
	if err != nil {
		return model.Post{}, err
	}
	return model.PostFromRecord(rec), nil
}

func (s *PostService) Update(ctx context.Context, caller model.Caller, id string, in UpdatePostInput) (model.Post, error) {
	if !caller.Authenticated() {
		return model.Post{}, model.ErrUnauthenticated
	}
	if id == "" {
		return model.Post{}, model.NewValidationError(model.FieldError{Field: "id", Message: "is required"})
	}
	if err := validateInput(in); err != nil {
		return model.Post{}, err
	}

	fields := model.Fields{}
	if in.Title != "" {
		fields[model.PostTitle] = in.Title
	}
	if in.Content != "" {
		fields[model.PostContent] = in.Content
	}
	if in.Category != "" {
		fields[model.PostCategoryF] = string(in.Category)
	}
	if in.Tags != nil {
		fields[model.PostTags] = in.Tags
	}
	if in.Images != nil {
		fields[model.PostImages] = model.Attachments(in.Images)
	}
	if len(fields) > 0 {
		fields[model.PostUpdatedAt] = s.now().UTC().Format(time.RFC3339)
	}

	rec, err := s.gw.Update(ctx, model.TablePosts, id, fields, caller)
	if err != nil {
		return model.Post{}, err
	}
	return model.PostFromRecord(rec), nil
}

func (s *PostService) Delete(ctx context.Context, caller model.Caller, id string) error {
	if !caller.Authenticated() {
		return model.ErrUnauthenticated
	}
	if id == "" {
		return model.NewValidationError(model.FieldError{Field: "id", Message: "is required"})
	}
	return s.gw.Delete(ctx, model.TablePosts, id, caller)
}

func categoryFilter(c model.PostCategory) filter.Expr {
	if c == "" {
		return nil
	}
	return filter.Eq(model.PostCategoryF, string(c))
}

func toPosts(recs []*model.Record) []model.Post {
	out := make([]model.Post, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.PostFromRecord(r))
	}
	return out
}
