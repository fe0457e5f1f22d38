package grpcsvc

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

// StorefrontClient выполняет команды витрины на удалённом киоске.
type StorefrontClient struct {
	conn   grpc.ClientConnInterface
	logger *log.Entry
}

// NewStorefrontClient создаёт клиента поверх готового соединения.
func NewStorefrontClient(conn grpc.ClientConnInterface, logger *log.Entry) *StorefrontClient {
	if logger == nil {
		logger = log.WithField("component", "storefront-grpc-client")
	}
	return &StorefrontClient{conn: conn, logger: logger}
}

// Dispatch реализует storefront.Dispatcher. История отправок доступна только на самом киоске.
func (c *StorefrontClient) Dispatch(ctx context.Context, cmd storefront.Command) storefront.Result {
	var (
		method string
		req    proto.Message = &emptypb.Empty{}
		err    error
	)

	switch cmd.Kind {
	case storefront.CommandStock:
		method = MethodListStock
	case storefront.CommandCart:
		method = MethodGetCart
	case storefront.CommandClear:
		method = MethodClearCart
	case storefront.CommandRefresh:
		method = MethodRefreshStock
	case storefront.CommandAdd:
		method = MethodAddItem
		req, err = structpb.NewStruct(map[string]any{"product": cmd.Product, "quantity": cmd.Quantity})
	case storefront.CommandRemove:
		method = MethodRemoveItem
		req, err = structpb.NewStruct(map[string]any{"product": cmd.Product})
	case storefront.CommandSubmit:
		method = MethodSubmitOrder
		req, err = structpb.NewStruct(map[string]any{"customer": cmd.Customer})
	case storefront.CommandHistory:
		return storefront.Result{Kind: storefront.ResultInfo, Message: "Submission history is only available on the kiosk"}
	default:
		return storefront.Result{
			Kind:    storefront.ResultError,
			Message: fmt.Sprintf("Unknown command %q", cmd.Kind),
			Err:     fmt.Errorf("unknown command %q", cmd.Kind),
		}
	}
	if err != nil {
		return storefront.Result{Kind: storefront.ResultError, Message: "Invalid command", Err: err}
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, out); err != nil {
		return c.transportFailure(method, err)
	}

	result, err := decodeResult(out)
	if err != nil {
		c.logger.WithError(err).WithField("method", method).Warn("kiosk returned a malformed result")
		return storefront.Result{Kind: storefront.ResultError, Message: "The kiosk returned an invalid response", Err: err}
	}
	return result
}

func (c *StorefrontClient) transportFailure(method string, err error) storefront.Result {
	entry := c.logger.WithError(err).WithField("method", method)
	switch status.Code(err) {
	case codes.InvalidArgument:
		entry.Debug("kiosk rejected the request")
		return storefront.Result{
			Kind:    storefront.ResultError,
			Message: status.Convert(err).Message(),
			Err:     fmt.Errorf("%w: %v", domain.ErrRejected, err),
		}
	default:
		entry.Warn("kiosk call failed")
		return storefront.Result{
			Kind:    storefront.ResultError,
			Message: "Connection error, the kiosk is unreachable",
			Err:     fmt.Errorf("%w: %v", domain.ErrNetwork, err),
		}
	}
}

var _ storefront.Dispatcher = (*StorefrontClient)(nil)
