package bus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbird/askbird/internal/domain"
)

type testClient struct {
	conn   *ws.Conn
	hubRef *Conn
}

// testHub sets up a hub behind a WebSocket test server. Each dial produces a
// connection already subscribed to the requested question room.
func testHub(t *testing.T, maxClientsPerRoom int) (*Hub, func(questionID uuid.UUID) *testClient) {
	t.Helper()

	hub := NewHub(clockwork.NewRealClock(), maxClientsPerRoom)
	t.Cleanup(hub.Stop)

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	var mu sync.Mutex
	registered := make(map[string]*Conn)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		questionID := uuid.MustParse(r.URL.Query().Get("question"))
		key := r.URL.Query().Get("key")

		hubConn := hub.Connect(conn)
		if err := hub.Subscribe(hubConn, questionID); err != nil {
			hub.Disconnect(hubConn)
			return
		}

		mu.Lock()
		registered[key] = hubConn
		mu.Unlock()

		go func() {
			defer hub.Disconnect(hubConn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	dial := func(questionID uuid.UUID) *testClient {
		t.Helper()
		key := uuid.NewString()
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "?question=" + questionID.String() + "&key=" + key
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return registered[key] != nil
		}, 2*time.Second, 10*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		return &testClient{conn: conn, hubRef: registered[key]}
	}

	return hub, dial
}

func waitForClientCount(h *Hub, questionID uuid.UUID, expected int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount(questionID) == expected {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func readEnvelope(t *testing.T, conn *ws.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded.Event, decoded.Data
}

func TestHub_PublishReachesRoomMembers(t *testing.T) {
	hub, dial := testHub(t, 0)
	questionID := uuid.New()
	answerID := uuid.New()

	first := dial(questionID)
	second := dial(questionID)
	require.True(t, waitForClientCount(hub, questionID, 2))

	hub.Publish(questionID, domain.AnswerVoteChanged{AnswerID: answerID, Type: "upvote"}, uuid.Nil)

	for _, client := range []*testClient{first, second} {
		event, data := readEnvelope(t, client.conn)
		assert.Equal(t, "answerUpdated", event)

		var payload domain.AnswerVoteChanged
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, answerID, payload.AnswerID)
		assert.Equal(t, "upvote", payload.Type)
	}
}

func TestHub_PublishExcludesNamedConnection(t *testing.T) {
	hub, dial := testHub(t, 0)
	questionID := uuid.New()

	origin := dial(questionID)
	other := dial(questionID)
	require.True(t, waitForClientCount(hub, questionID, 2))

	hub.Publish(questionID, domain.AnswerAdded{Answer: domain.Answer{ID: uuid.New()}}, origin.hubRef.ID)

	event, _ := readEnvelope(t, other.conn)
	assert.Equal(t, "answerAdded", event)

	require.NoError(t, origin.conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := origin.conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	hub, dial := testHub(t, 0)
	roomA := uuid.New()
	roomB := uuid.New()

	inA := dial(roomA)
	inB := dial(roomB)
	require.True(t, waitForClientCount(hub, roomA, 1))
	require.True(t, waitForClientCount(hub, roomB, 1))

	hub.Publish(roomA, domain.QuestionVoteChanged{QuestionID: roomA, Type: "upvote"}, uuid.Nil)

	event, _ := readEnvelope(t, inA.conn)
	assert.Equal(t, "questionUpdated", event)

	require.NoError(t, inB.conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := inB.conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_DeliveryOrderMatchesPublishOrder(t *testing.T) {
	hub, dial := testHub(t, 0)
	questionID := uuid.New()

	client := dial(questionID)
	require.True(t, waitForClientCount(hub, questionID, 1))

	answerIDs := make([]uuid.UUID, 5)
	for i := range answerIDs {
		answerIDs[i] = uuid.New()
		hub.Publish(questionID, domain.AnswerVoteChanged{AnswerID: answerIDs[i], Type: "upvote"}, uuid.Nil)
	}

	for _, want := range answerIDs {
		_, data := readEnvelope(t, client.conn)
		var payload domain.AnswerVoteChanged
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, want, payload.AnswerID)
	}
}

func TestHub_MaxClientsPerRoom(t *testing.T) {
	hub, dial := testHub(t, 2)
	questionID := uuid.New()

	dial(questionID)
	dial(questionID)
	require.True(t, waitForClientCount(hub, questionID, 2))

	// Third subscription must be rejected by the hub.
	extra := dial(uuid.New())
	err := hub.Subscribe(extra.hubRef, questionID)
	assert.Error(t, err)
	assert.Equal(t, 2, hub.ClientCount(questionID))
}

func TestHub_MultiRoomConnection(t *testing.T) {
	hub, dial := testHub(t, 0)
	roomA := uuid.New()
	roomB := uuid.New()

	client := dial(roomA)
	require.NoError(t, hub.Subscribe(client.hubRef, roomB))
	require.True(t, waitForClientCount(hub, roomB, 1))

	hub.Publish(roomA, domain.QuestionVoteChanged{QuestionID: roomA, Type: "upvote"}, uuid.Nil)
	hub.Publish(roomB, domain.QuestionVoteChanged{QuestionID: roomB, Type: "downvote"}, uuid.Nil)

	_, data := readEnvelope(t, client.conn)
	var payload domain.QuestionVoteChanged
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, roomA, payload.QuestionID)

	_, data = readEnvelope(t, client.conn)
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, roomB, payload.QuestionID)

	hub.Unsubscribe(client.hubRef, roomA)
	require.True(t, waitForClientCount(hub, roomA, 0))
	assert.Equal(t, 1, hub.ClientCount(roomB))
}

func TestHub_DisconnectLeavesAllRooms(t *testing.T) {
	hub, dial := testHub(t, 0)
	roomA := uuid.New()
	roomB := uuid.New()

	client := dial(roomA)
	require.NoError(t, hub.Subscribe(client.hubRef, roomB))

	hub.Disconnect(client.hubRef)
	require.True(t, waitForClientCount(hub, roomA, 0))
	require.True(t, waitForClientCount(hub, roomB, 0))
}

func TestHub_SubscribeTwiceIsNoop(t *testing.T) {
	hub, dial := testHub(t, 0)
	questionID := uuid.New()

	client := dial(questionID)
	require.NoError(t, hub.Subscribe(client.hubRef, questionID))
	assert.Equal(t, 1, hub.ClientCount(questionID))
}
