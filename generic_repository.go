package localping

import "context"

type GenericRepository[T Document] interface {
	FindById(ctx context.Context, id interface{}) (T, error)
	Save(ctx context.Context, doc T) error
	Update(ctx context.Context, doc T) error
	Delete(ctx context.Context, id interface{}) error
	FindOneBy(ctx context.Context, field string, value interface{}) (T, error)
	FindAllPaginated(ctx context.Context, pageRequest PageRequest) (PageResponse[T], error)
	CountBy(ctx context.Context, field string, value interface{}) (int64, error)
	CountByFilters(ctx context.Context, filters map[string]interface{}) (int64, error)
	ExistsBy(ctx context.Context, field string, value interface{}) (bool, error)
	ExistsByFilters(ctx context.Context, filters map[string]interface{}) (bool, error)
}
