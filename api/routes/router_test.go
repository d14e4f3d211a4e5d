package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	analyticsvc "github.com/sellgrid/marketplace-backend/internal/analytics"
	"github.com/sellgrid/marketplace-backend/internal/auth"
	"github.com/sellgrid/marketplace-backend/internal/cart"
	chatsvc "github.com/sellgrid/marketplace-backend/internal/chat"
	checkoutsvc "github.com/sellgrid/marketplace-backend/internal/checkout"
	commentsvc "github.com/sellgrid/marketplace-backend/internal/comments"
	"github.com/sellgrid/marketplace-backend/internal/notifications"
	ordersvc "github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/internal/products"
	"github.com/sellgrid/marketplace-backend/internal/profiles"
	pkgauth "github.com/sellgrid/marketplace-backend/pkg/auth"
	"github.com/sellgrid/marketplace-backend/pkg/auth/session"
	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*profiles.ProfileDTO, error) {
	return &profiles.ProfileDTO{ID: uuid.New()}, nil
}

type stubProfilesService struct{}

func (stubProfilesService) Get(ctx context.Context, profileID uuid.UUID) (*profiles.ProfileDTO, error) {
	return &profiles.ProfileDTO{ID: profileID}, nil
}

func (stubProfilesService) Update(ctx context.Context, profileID uuid.UUID, req profiles.UpdateProfileDTO) (*profiles.ProfileDTO, error) {
	return &profiles.ProfileDTO{ID: profileID}, nil
}

type stubProductsService struct{}

func (stubProductsService) CreateProduct(ctx context.Context, sellerID uuid.UUID, input products.CreateProductInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}

func (stubProductsService) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input products.UpdateProductInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}

func (stubProductsService) DeactivateProduct(ctx context.Context, sellerID, productID uuid.UUID) error {
	return nil
}

func (stubProductsService) GetProduct(ctx context.Context, productID uuid.UUID) (*products.ProductDTO, error) {
	return &products.ProductDTO{ID: productID}, nil
}

func (stubProductsService) ListProducts(ctx context.Context, input products.ListProductsInput) (*products.ProductListResult, error) {
	return &products.ProductListResult{}, nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, buyerID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) AddItem(ctx context.Context, buyerID, productID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) UpdateQuantity(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(ctx context.Context, profileID uuid.UUID, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
	return &checkoutsvc.CheckoutResult{}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) List(ctx context.Context, profileID uuid.UUID, input ordersvc.ListOrdersInput) (*ordersvc.OrderListResult, error) {
	return &ordersvc.OrderListResult{}, nil
}

func (stubOrdersService) Get(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrdersService) UpdateStatus(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID, input ordersvc.UpdateStatusInput) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrdersService) AssignDriver(ctx context.Context, actor ordersvc.Actor, orderID uuid.UUID, input ordersvc.AssignDriverInput) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, sellerID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubChatService struct{}

func (stubChatService) Send(ctx context.Context, senderID uuid.UUID, input chatsvc.SendMessageInput) (*chatsvc.MessageDTO, error) {
	return &chatsvc.MessageDTO{}, nil
}

func (stubChatService) History(ctx context.Context, userID uuid.UUID, input chatsvc.HistoryInput) (*chatsvc.HistoryResult, error) {
	return &chatsvc.HistoryResult{}, nil
}

func (stubChatService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	return nil
}

type stubCommentsService struct{}

func (stubCommentsService) Create(ctx context.Context, authorID uuid.UUID, input commentsvc.CreateCommentInput) (*commentsvc.CommentDTO, error) {
	return &commentsvc.CommentDTO{}, nil
}

func (stubCommentsService) Update(ctx context.Context, authorID, commentID uuid.UUID, input commentsvc.UpdateCommentInput) (*commentsvc.CommentDTO, error) {
	return &commentsvc.CommentDTO{}, nil
}

func (stubCommentsService) Delete(ctx context.Context, authorID, commentID uuid.UUID) error {
	return nil
}

func (stubCommentsService) ListByProduct(ctx context.Context, input commentsvc.ListCommentsInput) (*commentsvc.CommentListResult, error) {
	return &commentsvc.CommentListResult{}, nil
}

type stubAnalyticsService struct{}

func (stubAnalyticsService) Summary(ctx context.Context, sellerID uuid.UUID, windowDays int) (*analyticsvc.Summary, error) {
	return &analyticsvc.Summary{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           stubPinger{},
		Redis:        nil,
		Sessions:     stubSessions{},
		AuthService:  stubAuthService{},
		Register:     stubRegisterService{},
		Profiles:     stubProfilesService{},
		Products:     stubProductsService{},
		Cart:         stubCartService{},
		Checkout:     stubCheckoutService{},
		Orders:       stubOrdersService{},
		Notification: stubNotificationsService{},
		Chat:         stubChatService{},
		Comments:     stubCommentsService{},
		Analytics:    stubAnalyticsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ProfileRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		ProfileID: uuid.New(),
		Role:      role,
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestProductCatalogIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}
}

func TestCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ProfileRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart got %d", resp.Code)
	}
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	buyer := httptest.NewRequest(http.MethodGet, "/api/v1/seller/analytics/summary", nil)
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ProfileRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer on analytics got %d", resp.Code)
	}

	seller := httptest.NewRequest(http.MethodGet, "/api/v1/seller/analytics/summary", nil)
	seller.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ProfileRoleSeller))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, seller)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller analytics got %d", resp.Code)
	}
}

func TestProductCreateRequiresSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"name":"Desk Lamp","description":"warm light","price_cents":4300,"stock_quantity":5,"category":"home"}`
	buyer := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	buyer.Header.Set("Content-Type", "application/json")
	buyer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ProfileRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer product create got %d", resp.Code)
	}

	seller := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	seller.Header.Set("Content-Type", "application/json")
	seller.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ProfileRoleSeller))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, seller)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for seller product create got %d", resp.Code)
	}
}

func TestProductMutationsReachableAlongsideCatalogReads(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.ProfileRoleSeller)

	update := httptest.NewRequest(http.MethodPatch, "/api/v1/products/"+uuid.NewString(),
		strings.NewReader(`{"price_cents":5100}`))
	update.Header.Set("Content-Type", "application/json")
	update.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, update)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller product update got %d", resp.Code)
	}

	remove := httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+uuid.NewString(), nil)
	remove.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, remove)
	if resp.Code == http.StatusMethodNotAllowed || resp.Code == http.StatusUnauthorized {
		t.Fatalf("seller product delete should be routable got %d", resp.Code)
	}

	list := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, list)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public product list got %d", resp.Code)
	}
}

func TestCheckoutRejectsBadJSON(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ProfileRoleBuyer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCommentsListIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString()+"/comments", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public comments got %d", resp.Code)
	}
}
