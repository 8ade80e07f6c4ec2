package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbird/askbird/internal/domain"
)

func dialWS(t *testing.T, server *httptest.Server, actor uuid.UUID) *ws.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{}
	header.Set(userIDHeader, actor.String())

	conn, _, err := ws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *ws.Conn, msg clientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func readWSEnvelope(t *testing.T, conn *ws.Conn) (string, json.RawMessage) {
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

func waitForRoomSize(srv *Server, questionID uuid.UUID, expected int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.hub.ClientCount(questionID) == expected {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestWebSocket_JoinAndReceiveVoteEvent(t *testing.T) {
	srv, store := testServer(t)
	_, answerer, question, answer := seedForum(t, store)

	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	watcher := dialWS(t, httpServer, answerer.ID)
	sendWS(t, watcher, clientMessage{Action: "joinQuestion", QuestionID: question.ID})
	require.True(t, waitForRoomSize(srv, question.ID, 1))

	votePath := "/api/answers/" + answer.ID.String() + "/vote"
	rec := doRequest(t, srv, http.MethodPut, votePath, `{"direction":"up"}`, answerer.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	event, data := readWSEnvelope(t, watcher)
	assert.Equal(t, "answerUpdated", event)

	var payload domain.AnswerVoteChanged
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, answer.ID, payload.AnswerID)
	assert.Equal(t, "upvote", payload.Type)
}

func TestWebSocket_NewAnswerExcludesSender(t *testing.T) {
	srv, store := testServer(t)
	asker, answerer, question, _ := seedForum(t, store)

	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	sender := dialWS(t, httpServer, answerer.ID)
	watcher := dialWS(t, httpServer, asker.ID)

	sendWS(t, sender, clientMessage{Action: "joinQuestion", QuestionID: question.ID})
	sendWS(t, watcher, clientMessage{Action: "joinQuestion", QuestionID: question.ID})
	require.True(t, waitForRoomSize(srv, question.ID, 2))

	sendWS(t, sender, clientMessage{Action: "newAnswer", QuestionID: question.ID, Answer: "live answer"})

	event, data := readWSEnvelope(t, watcher)
	assert.Equal(t, "answerAdded", event)

	var payload domain.AnswerAdded
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "live answer", payload.Answer.Body)
	assert.Equal(t, answerer.ID, payload.Answer.AuthorID)

	// The sender must not receive its own answer.
	require.NoError(t, sender.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := sender.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_NewAnswerWireFieldIsAnswer(t *testing.T) {
	srv, store := testServer(t)
	asker, answerer, question, _ := seedForum(t, store)

	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	sender := dialWS(t, httpServer, answerer.ID)
	watcher := dialWS(t, httpServer, asker.ID)
	sendWS(t, watcher, clientMessage{Action: "joinQuestion", QuestionID: question.ID})
	require.True(t, waitForRoomSize(srv, question.ID, 1))

	raw := `{"action":"newAnswer","questionId":"` + question.ID.String() + `","answer":"raw frame"}`
	require.NoError(t, sender.WriteMessage(ws.TextMessage, []byte(raw)))

	event, data := readWSEnvelope(t, watcher)
	assert.Equal(t, "answerAdded", event)

	var payload domain.AnswerAdded
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "raw frame", payload.Answer.Body)
}

func TestWebSocket_JoinUnknownQuestion(t *testing.T) {
	srv, store := testServer(t)
	_, answerer, _, _ := seedForum(t, store)

	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	conn := dialWS(t, httpServer, answerer.ID)
	sendWS(t, conn, clientMessage{Action: "joinQuestion", QuestionID: uuid.New()})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var response wsError
	require.NoError(t, json.Unmarshal(data, &response))
	assert.Equal(t, "question not found", response.Error)
}

func TestWebSocket_LeaveQuestionStopsDelivery(t *testing.T) {
	srv, store := testServer(t)
	_, answerer, question, answer := seedForum(t, store)

	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	conn := dialWS(t, httpServer, answerer.ID)
	sendWS(t, conn, clientMessage{Action: "joinQuestion", QuestionID: question.ID})
	require.True(t, waitForRoomSize(srv, question.ID, 1))

	sendWS(t, conn, clientMessage{Action: "leaveQuestion", QuestionID: question.ID})
	require.True(t, waitForRoomSize(srv, question.ID, 0))

	votePath := "/api/answers/" + answer.ID.String() + "/vote"
	rec := doRequest(t, srv, http.MethodPut, votePath, `{"direction":"up"}`, answerer.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, readErr := conn.ReadMessage()
	assert.Error(t, readErr)
}

func TestWebSocket_RequiresActor(t *testing.T) {
	srv, _ := testServer(t)

	httpServer := httptest.NewServer(srv.echo)
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
