package payments

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"github.com/pipecast/backend/config"
	"github.com/pipecast/backend/internal/middleware"
	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/pkg/response"
)

// UserStore is the subset of the user repository payments needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
	SetStripeConnectID(ctx context.Context, userID uuid.UUID, connectID string) error
	SetSubscription(ctx context.Context, userID uuid.UUID, active bool) error
}

// AttendeeStore is the subset of the attendance repository payments needs.
type AttendeeStore interface {
	GetAttendeeByEmail(ctx context.Context, email string) (*models.Attendee, error)
	SetAttendeeStripeCustomer(ctx context.Context, attendeeID uuid.UUID, customerID string) error
	GetAttendance(ctx context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error)
	AdvanceStage(ctx context.Context, webinarID, attendeeID uuid.UUID, from, to models.AttendanceStage) (bool, error)
}

// WebinarStore is the subset of the webinar repository payments needs.
type WebinarStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	SetStripeProduct(ctx context.Context, id uuid.UUID, productID, priceID string) error
}

// Handler handles Stripe Connect onboarding, product setup, checkout and
// platform subscriptions. Stripe failures are logged with the raw error and
// surfaced to clients as a generic upstream message.
type Handler struct {
	api       *client.API
	cfg       config.StripeConfig
	users     UserStore
	attendees AttendeeStore
	webinars  WebinarStore
	logger    *zap.Logger
}

// NewHandler creates a payments handler.
func NewHandler(api *client.API, cfg config.StripeConfig, users UserStore, attendees AttendeeStore, webinars WebinarStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{api: api, cfg: cfg, users: users, attendees: attendees, webinars: webinars, logger: logger}
}

// ConnectLink handles GET /payments/connect-link. It returns the Stripe
// Connect OAuth URL the presenter should be redirected to.
func (h *Handler) ConnectLink(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	response.OK(c, gin.H{
		"url": BuildConnectURL(h.api, h.cfg.ClientID, h.cfg.RedirectURI, userID.String()),
	})
}

// ConnectCallback handles GET /payments/connect/callback. Stripe redirects
// here with an authorization code and the state we sent on the link.
func (h *Handler) ConnectCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.BadRequest(c, "missing code or state")
		return
	}
	userID, err := uuid.Parse(state)
	if err != nil {
		response.BadRequest(c, "invalid state")
		return
	}
	if _, err := h.users.GetByID(c.Request.Context(), userID); err != nil {
		response.NotFound(c, "user not found")
		return
	}

	params := &stripe.OAuthTokenParams{
		GrantType: stripe.String("authorization_code"),
		Code:      stripe.String(code),
	}
	params.Context = c.Request.Context()
	token, err := h.api.OAuth.New(params)
	if err != nil {
		h.upstream(c, "stripe oauth exchange failed", err)
		return
	}
	if err := h.users.SetStripeConnectID(c.Request.Context(), userID, token.StripeUserID); err != nil {
		response.Internal(c, "failed to save account link")
		return
	}
	response.OK(c, gin.H{"connected": true})
}

// ListProducts handles GET /payments/products. It lists active products on
// the presenter's connected account.
func (h *Handler) ListProducts(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if user.StripeConnectID == nil {
		response.BadRequest(c, "no payment account connected")
		return
	}

	products, err := listProducts(c.Request.Context(), h.api, *user.StripeConnectID)
	if err != nil {
		h.upstream(c, "stripe product listing failed", err)
		return
	}
	out := make([]gin.H, 0, len(products))
	for _, p := range products {
		out = append(out, gin.H{"id": p.ID, "name": p.Name, "description": p.Description})
	}
	response.OK(c, gin.H{"products": out})
}

// CreateProductRequest is the body for POST /webinars/:id/product.
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
}

// CreateWebinarProduct handles POST /webinars/:id/product. It creates a
// product and price on the presenter's connected account and stores the IDs
// on the webinar for checkout.
func (h *Handler) CreateWebinarProduct(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	webinar, err := h.webinars.GetByID(c.Request.Context(), webinarID)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if webinar.PresenterID != userID {
		response.Forbidden(c, "only the presenter can configure products")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if user.StripeConnectID == nil {
		response.BadRequest(c, "no payment account connected")
		return
	}
	account := *user.StripeConnectID

	productParams := &stripe.ProductParams{Name: stripe.String(req.Name)}
	productParams.Context = c.Request.Context()
	productParams.SetStripeAccount(account)
	product, err := h.api.Products.New(productParams)
	if err != nil {
		h.upstream(c, "stripe product creation failed", err)
		return
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(product.ID),
		UnitAmount: stripe.Int64(req.AmountCents),
		Currency:   stripe.String(req.Currency),
	}
	priceParams.Context = c.Request.Context()
	priceParams.SetStripeAccount(account)
	price, err := h.api.Prices.New(priceParams)
	if err != nil {
		h.upstream(c, "stripe price creation failed", err)
		return
	}

	if err := h.webinars.SetStripeProduct(c.Request.Context(), webinarID, product.ID, price.ID); err != nil {
		response.Internal(c, "failed to save product")
		return
	}
	response.Created(c, gin.H{"product_id": product.ID, "price_id": price.ID})
}

// CheckoutRequest is the body for POST /payments/checkout. The charge amount
// comes from the webinar's configured price, never from the client.
type CheckoutRequest struct {
	WebinarID uuid.UUID `json:"webinar_id" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
}

// Checkout handles POST /payments/checkout. It creates a payment intent on
// the presenter's connected account for the webinar's stored price and moves
// the attendee's pipeline stage to added_to_cart.
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	webinar, err := h.webinars.GetByID(ctx, req.WebinarID)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	presenter, err := h.users.GetByID(ctx, webinar.PresenterID)
	if err != nil {
		response.Internal(c, "failed to load presenter")
		return
	}
	if presenter.StripeConnectID == nil {
		response.BadRequest(c, "presenter has not connected a payment account")
		return
	}
	account := *presenter.StripeConnectID
	if webinar.StripePriceID == nil {
		response.BadRequest(c, "webinar has no product configured")
		return
	}

	attendee, err := h.attendees.GetAttendeeByEmail(ctx, req.Email)
	if err != nil || attendee == nil {
		response.NotFound(c, "attendee is not registered")
		return
	}

	price, err := retrievePrice(ctx, h.api, account, *webinar.StripePriceID)
	if err != nil {
		h.upstream(c, "stripe price lookup failed", err)
		return
	}

	customerID, err := h.ensureAttendeeCustomer(ctx, attendee, account)
	if err != nil {
		h.upstream(c, "stripe customer creation failed", err)
		return
	}

	intentParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(price.UnitAmount),
		Currency: stripe.String(string(price.Currency)),
		Customer: stripe.String(customerID),
	}
	intentParams.Context = ctx
	intentParams.SetStripeAccount(account)
	intent, err := h.api.PaymentIntents.New(intentParams)
	if err != nil {
		h.upstream(c, "stripe payment intent failed", err)
		return
	}

	h.moveToCart(ctx, req.WebinarID, attendee.ID)

	response.OK(c, gin.H{"client_secret": intent.ClientSecret})
}

// Subscribe handles POST /payments/subscribe. It puts the authenticated
// presenter on the platform subscription.
func (h *Handler) Subscribe(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	customerID, err := h.ensureUserCustomer(ctx, user)
	if err != nil {
		h.upstream(c, "stripe customer creation failed", err)
		return
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(h.cfg.SubscriptionPriceID)},
		},
	}
	subParams.Context = ctx
	sub, err := h.api.Subscriptions.New(subParams)
	if err != nil {
		h.upstream(c, "stripe subscription failed", err)
		return
	}

	if err := h.users.SetSubscription(ctx, userID, true); err != nil {
		response.Internal(c, "failed to record subscription")
		return
	}
	response.OK(c, gin.H{"subscription_id": sub.ID, "status": string(sub.Status)})
}

func (h *Handler) ensureUserCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil {
		return *user.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.FullName),
	}
	params.Context = ctx
	customer, err := h.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	if err := h.users.SetStripeCustomerID(ctx, user.ID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (h *Handler) ensureAttendeeCustomer(ctx context.Context, attendee *models.Attendee, account string) (string, error) {
	if attendee.StripeCustomerID != nil {
		return *attendee.StripeCustomerID, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(attendee.Email),
		Name:  stripe.String(attendee.FullName),
	}
	params.Context = ctx
	params.SetStripeAccount(account)
	customer, err := h.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	if err := h.attendees.SetAttendeeStripeCustomer(ctx, attendee.ID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// moveToCart advances the attendee's stage to added_to_cart when they are
// earlier in the funnel. Failures are logged, never surfaced: the payment
// already succeeded from the attendee's point of view.
func (h *Handler) moveToCart(ctx context.Context, webinarID, attendeeID uuid.UUID) {
	attendance, err := h.attendees.GetAttendance(ctx, webinarID, attendeeID)
	if err != nil || attendance == nil {
		h.logger.Warn("checkout without attendance record",
			zap.String("webinar_id", webinarID.String()),
			zap.String("attendee_id", attendeeID.String()),
			zap.Error(err))
		return
	}
	if models.StageRank(attendance.Stage) >= models.StageRank(models.StageAddedToCart) {
		return
	}
	if _, err := h.attendees.AdvanceStage(ctx, webinarID, attendeeID, attendance.Stage, models.StageAddedToCart); err != nil {
		h.logger.Warn("failed to advance stage after checkout",
			zap.String("webinar_id", webinarID.String()),
			zap.String("attendee_id", attendeeID.String()),
			zap.Error(err))
	}
}

func (h *Handler) upstream(c *gin.Context, msg string, err error) {
	h.logger.Error(msg,
		zap.Error(err),
		zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
	response.Upstream(c, "payment provider is unavailable, try again later")
}
