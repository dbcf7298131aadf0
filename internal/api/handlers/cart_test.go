package handlers_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront/internal/cart"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/session"
	"github.com/aaravmahajanofficial/storefront/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeCart(t *testing.T, rr *httptest.ResponseRecorder) models.CartResponse {
	t.Helper()

	var resp models.CartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return resp
}

func addItemBody(productID string, quantity int) *bytes.Reader {
	body, _ := json.Marshal(models.AddItemRequest{
		ProductID: productID,
		Title:     "Item " + productID,
		Image:     "/" + productID + ".png",
		Price:     370,
		Quantity:  quantity,
	})
	return bytes.NewReader(body)
}

func TestGetCart(t *testing.T) {

	t.Run("Success - empty cart in the session currency", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodGet, "/api/cart", nil, sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.GetCart().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeCart(t, rr)
		assert.Equal(t, string(cart.StateSynced), resp.State)
		assert.Empty(t, resp.Items)
		assert.NotNil(t, resp.Items)
		assert.Equal(t, "PKR", resp.Currency)
		assert.Equal(t, "0.00", resp.DisplaySubtotal)
	})

	t.Run("Success - subtotal projected into AUD", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		require.NoError(t, sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: "p1", Title: "Lamp", Image: "/l.png", Price: 370}, 5))
		waitForItems(t, sess, 5)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodGet, "/api/cart?currency=aud", nil, sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.GetCart().ServeHTTP(rr, req)

		// Assert
		resp := decodeCart(t, rr)
		assert.Equal(t, 5, resp.TotalItems)
		assert.InDelta(t, 1850.0, resp.Subtotal, 1e-9)
		assert.Equal(t, "AUD", resp.Currency)
		assert.Equal(t, "10.00", resp.DisplaySubtotal)
	})

	t.Run("Failure - Unsupported currency", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodGet, "/api/cart?currency=JPY", nil, sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.GetCart().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Unsupported currency: JPY", decodeError(t, rr).Error)
	})

	t.Run("Failure - No session", func(t *testing.T) {
		// Arrange
		cartHandler := handlers.NewCartHandler(time.Second)
		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/cart", nil, "u1", nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.GetCart().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAddItem(t *testing.T) {

	t.Run("Success - repeated adds accumulate", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		// Act
		for range 2 {
			rr := httptest.NewRecorder()
			req := testutils.CreateTestRequestWithSession(http.MethodPost, "/api/cart/items", addItemBody("p1", 2), sess, nil)
			cartHandler.AddItem().ServeHTTP(rr, req)
			require.Equal(t, http.StatusAccepted, rr.Code)
		}

		// Assert
		waitForItems(t, sess, 4)
		items := sess.Cart.Snapshot().Items
		require.Len(t, items, 1)
		assert.Equal(t, "p1", items[0].ProductID)
	})

	t.Run("Success - legacy id is accepted", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		body := `{"id":"legacy-7","title":"Mug","image":"/m.png","price":100,"quantity":1}`
		req := testutils.CreateTestRequestWithSession(http.MethodPost, "/api/cart/items", strings.NewReader(body), sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.AddItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusAccepted, rr.Code)
		waitForItems(t, sess, 1)
		assert.Equal(t, "legacy-7", sess.Cart.Snapshot().Items[0].ProductID)
	})

	t.Run("Failure - Missing product id", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodPost, "/api/cart/items", addItemBody("", 1), sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.AddItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Product ID is missing.", decodeError(t, rr).Error)
		assert.Equal(t, "Product ID is missing.", sess.Cart.Snapshot().Error)
	})

	t.Run("Failure - Quantity below one", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodPost, "/api/cart/items", addItemBody("p1", 0), sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.AddItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Zero(t, sess.Cart.TotalItems())
	})

	t.Run("Failure - Session closed", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		fixture.manager.Close(sess.UserID)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodPost, "/api/cart/items", addItemBody("p1", 1), sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.AddItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "Database or user not ready. Cannot add to cart.", decodeError(t, rr).Error)
	})
}

func TestUpdateAndRemoveItem(t *testing.T) {

	t.Run("Update sets the quantity", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		require.NoError(t, sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: "p1", Title: "A", Image: "/a.png", Price: 10}, 1))
		waitForItems(t, sess, 1)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodPut, "/api/cart/items/p1", strings.NewReader(`{"quantity":6}`), sess, map[string]string{"productId": "p1"})
		rr := httptest.NewRecorder()

		// Act
		cartHandler.UpdateItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusAccepted, rr.Code)
		waitForItems(t, sess, 6)
	})

	t.Run("Update to zero removes the item", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		require.NoError(t, sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: "p1", Title: "A", Image: "/a.png", Price: 10}, 3))
		waitForItems(t, sess, 3)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodPut, "/api/cart/items/p1", strings.NewReader(`{"quantity":0}`), sess, map[string]string{"productId": "p1"})
		rr := httptest.NewRecorder()

		// Act
		cartHandler.UpdateItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusAccepted, rr.Code)
		waitForItems(t, sess, 0)
		assert.Empty(t, sess.Cart.Snapshot().Items)
	})

	t.Run("Update of an absent item is not found", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodPut, "/api/cart/items/ghost", strings.NewReader(`{"quantity":3}`), sess, map[string]string{"productId": "ghost"})
		rr := httptest.NewRecorder()

		// Act
		cartHandler.UpdateItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "Item not found in cart.")
		assert.False(t, sess.Cart.Snapshot().Loading)
	})

	t.Run("Remove deletes the item", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		require.NoError(t, sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: "p1", Title: "A", Image: "/a.png", Price: 10}, 2))
		require.NoError(t, sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: "p2", Title: "B", Image: "/b.png", Price: 10}, 1))
		waitForItems(t, sess, 3)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodDelete, "/api/cart/items/p1", nil, sess, map[string]string{"productId": "p1"})
		rr := httptest.NewRecorder()

		// Act
		cartHandler.RemoveItem().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusAccepted, rr.Code)
		waitForItems(t, sess, 1)
	})

	t.Run("Clear empties the cart", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		for _, id := range []string{"p1", "p2", "p3"} {
			require.NoError(t, sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: id, Title: id, Image: "/i.png", Price: 10}, 1))
		}
		waitForItems(t, sess, 3)
		cartHandler := handlers.NewCartHandler(time.Second)

		req := testutils.CreateTestRequestWithSession(http.MethodDelete, "/api/cart", nil, sess, nil)
		rr := httptest.NewRecorder()

		// Act
		cartHandler.ClearCart().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusAccepted, rr.Code)
		waitForItems(t, sess, 0)
	})
}

type sseEvent struct {
	name string
	data string
}

// readEvents parses the stream until stop returns true or the body ends.
func readEvents(t *testing.T, resp *http.Response, stop func(sseEvent) bool) []sseEvent {
	t.Helper()

	var (
		events  []sseEvent
		current sseEvent
	)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "" && current.name != "":
			events = append(events, current)
			if stop(current) {
				return events
			}
			current = sseEvent{}
		}
	}

	return events
}

func streamServer(t *testing.T, sess *session.Session, keepAlive time.Duration) *httptest.Server {
	t.Helper()

	cartHandler := handlers.NewCartHandler(keepAlive)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cartHandler.Events().ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestCartEvents(t *testing.T) {

	t.Run("Initial snapshot then updates", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		server := streamServer(t, sess, time.Minute)

		resp, err := http.Get(server.URL + "?currency=AUD")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		// Act
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = sess.Cart.AddToCart(t.Context(), models.ProductRef{ID: "p1", Title: "A", Image: "/a.png", Price: 370}, 2)
		}()

		events := readEvents(t, resp, func(e sseEvent) bool {
			var snapshot models.CartResponse
			return json.Unmarshal([]byte(e.data), &snapshot) == nil && snapshot.TotalItems == 2
		})

		// Assert
		require.GreaterOrEqual(t, len(events), 2)
		assert.Equal(t, "cart", events[0].name)

		var first models.CartResponse
		require.NoError(t, json.Unmarshal([]byte(events[0].data), &first))
		assert.Zero(t, first.TotalItems)
		assert.Equal(t, "AUD", first.Currency)

		var last models.CartResponse
		require.NoError(t, json.Unmarshal([]byte(events[len(events)-1].data), &last))
		assert.Equal(t, "4.00", last.DisplaySubtotal)
	})

	t.Run("Closing the session ends the stream", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		server := streamServer(t, sess, time.Minute)

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		// Act
		go func() {
			time.Sleep(20 * time.Millisecond)
			fixture.manager.Close(sess.UserID)
		}()

		events := readEvents(t, resp, func(e sseEvent) bool { return e.name == "closed" })

		// Assert
		require.NotEmpty(t, events)
		assert.Equal(t, "closed", events[len(events)-1].name)
	})

	t.Run("Keep-alive comments refresh the session", func(t *testing.T) {
		// Arrange
		fixture := newSessionFixture(t)
		sess := fixture.open(t)
		before := sess.LastSeen()
		server := streamServer(t, sess, 10*time.Millisecond)

		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		// Act
		reader := bufio.NewReader(resp.Body)
		var sawKeepAlive bool
		for !sawKeepAlive {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			sawKeepAlive = strings.HasPrefix(line, ": keep-alive")
		}

		// Assert
		assert.True(t, sess.LastSeen().After(before))
	})
}
