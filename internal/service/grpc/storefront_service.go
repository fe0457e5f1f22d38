// Package grpcsvc публикует витрину киоска по gRPC (farmstand.v1.Storefront).
package grpcsvc

import (
	"context"
	"math"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

// StorefrontService транслирует вызовы gRPC в команды витрины.
// Ошибки витрины возвращаются в теле ответа (kind=error), статус gRPC остаётся OK;
// InvalidArgument означает некорректный запрос, Internal означает сбой кодирования.
type StorefrontService struct {
	front  storefront.Dispatcher
	logger *log.Entry
}

// NewStorefrontService создаёт сервис поверх диспетчера витрины.
func NewStorefrontService(front storefront.Dispatcher, logger *log.Entry) *StorefrontService {
	if logger == nil {
		logger = log.WithField("component", "storefront-grpc")
	}
	return &StorefrontService{front: front, logger: logger}
}

// ListStock возвращает снимок склада.
func (s *StorefrontService) ListStock(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.dispatch(ctx, storefront.Command{Kind: storefront.CommandStock})
}

// GetCart возвращает корзину.
func (s *StorefrontService) GetCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.dispatch(ctx, storefront.Command{Kind: storefront.CommandCart})
}

// AddItem ожидает поля product (string) и quantity (number).
func (s *StorefrontService) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	fields := req.GetFields()
	qty, ok := fields["quantity"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "quantity must be a number")
	}
	value := math.Floor(qty.NumberValue)
	if math.IsNaN(value) || value > math.MaxInt32 || value < math.MinInt32 {
		return nil, status.Error(codes.InvalidArgument, "quantity is out of range")
	}

	return s.dispatch(ctx, storefront.Command{
		Kind:     storefront.CommandAdd,
		Product:  fields["product"].GetStringValue(),
		Quantity: int(value),
	})
}

// RemoveItem ожидает поле product.
func (s *StorefrontService) RemoveItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return s.dispatch(ctx, storefront.Command{
		Kind:    storefront.CommandRemove,
		Product: req.GetFields()["product"].GetStringValue(),
	})
}

func (s *StorefrontService) ClearCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.dispatch(ctx, storefront.Command{Kind: storefront.CommandClear})
}

// SubmitOrder ожидает поле customer; пустое имя отвергается витриной, а не транспортом.
func (s *StorefrontService) SubmitOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return s.dispatch(ctx, storefront.Command{
		Kind:     storefront.CommandSubmit,
		Customer: req.GetFields()["customer"].GetStringValue(),
	})
}

func (s *StorefrontService) RefreshStock(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.dispatch(ctx, storefront.Command{Kind: storefront.CommandRefresh})
}

func (s *StorefrontService) dispatch(ctx context.Context, cmd storefront.Command) (*structpb.Struct, error) {
	result := s.front.Dispatch(ctx, cmd)
	if result.Err != nil {
		s.logger.WithError(result.Err).WithField("command", cmd.Kind).Debug("storefront command failed")
	}

	out, err := encodeResult(result)
	if err != nil {
		s.logger.WithError(err).WithField("command", cmd.Kind).Error("failed to encode storefront result")
		return nil, status.Error(codes.Internal, "failed to encode result")
	}
	return out, nil
}

var _ StorefrontServer = (*StorefrontService)(nil)
