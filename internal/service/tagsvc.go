package service

import "context"

type TagsStore interface {
	List(ctx context.Context) ([]string, error)
}

type TagsService struct {
	Store TagsStore
}

func (s *TagsService) List(ctx context.Context) ([]string, error) {
	tags, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
