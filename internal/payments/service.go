package payments

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// readTimeout bounds read calls against the Stripe API. Writes get the
// request context as-is so an in-flight charge is never cut short.
const readTimeout = 10 * time.Second

// BuildConnectURL assembles the Stripe Connect OAuth authorization URL. The
// state parameter carries the initiating user's ID and is echoed back on the
// callback.
func BuildConnectURL(api *client.API, clientID, redirectURI, state string) string {
	return api.OAuth.AuthorizeURL(&stripe.AuthorizeURLParams{
		ResponseType: stripe.String("code"),
		ClientID:     stripe.String(clientID),
		Scope:        stripe.String("read_write"),
		RedirectURI:  stripe.String(redirectURI),
		State:        stripe.String(state),
	})
}

// listProducts fetches active products on a connected account. Listing is a
// read, so it is retried once on failure within a bounded deadline.
func listProducts(ctx context.Context, api *client.API, connectedAccount string) ([]*stripe.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	products, err := listProductsOnce(ctx, api, connectedAccount)
	if err == nil {
		return products, nil
	}
	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(500 * time.Millisecond):
	}
	return listProductsOnce(ctx, api, connectedAccount)
}

func listProductsOnce(ctx context.Context, api *client.API, connectedAccount string) ([]*stripe.Product, error) {
	params := &stripe.ProductListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.SetStripeAccount(connectedAccount)

	var products []*stripe.Product
	iter := api.Products.List(params)
	for iter.Next() {
		products = append(products, iter.Product())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// retrievePrice loads a price from a connected account. Retrieval is a read,
// so it is retried once on failure within a bounded deadline.
func retrievePrice(ctx context.Context, api *client.API, connectedAccount, priceID string) (*stripe.Price, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	price, err := retrievePriceOnce(ctx, api, connectedAccount, priceID)
	if err == nil {
		return price, nil
	}
	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(500 * time.Millisecond):
	}
	return retrievePriceOnce(ctx, api, connectedAccount, priceID)
}

func retrievePriceOnce(ctx context.Context, api *client.API, connectedAccount, priceID string) (*stripe.Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	params.SetStripeAccount(connectedAccount)
	return api.Prices.Get(priceID, params)
}
