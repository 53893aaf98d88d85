package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/linkit-hq/linkit-engine/pkg/catalog"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

func newRenderer() *Renderer {
	return NewRenderer(catalog.Default())
}

func TestRenderer_ProfileCardHidesContacts(t *testing.T) {
	p := &models.Profile{ActorID: 5, Username: "secret_handle", DisplayName: "Аня", Role: "backend", Stack: "python"}

	card := newRenderer().ProfileCard(p)

	assert.Contains(t, card, "Имя: Аня")
	assert.Contains(t, card, "Роль: Backend")
	assert.Contains(t, card, "Язык/стек: Python")
	assert.Contains(t, card, "Навыки: —")
	assert.NotContains(t, card, "secret_handle")
}

func TestRenderer_ProjectCardHidesChatLink(t *testing.T) {
	limit := 4
	p := &models.Project{
		Title: "LinkIT", Status: "idea", Level: "any", LookingForRole: "backend",
		ChatLink: "https://t.me/+secret", TeamLimit: &limit, CurrentMembers: 2,
	}

	card := newRenderer().ProjectCard(p)

	assert.Contains(t, card, "Проект: LinkIT")
	assert.Contains(t, card, "Кого ищем: Backend")
	assert.Contains(t, card, "Команда: 2/4")
	assert.NotContains(t, card, "t.me")
}

func TestRenderer_RequestReceived(t *testing.T) {
	r := newRenderer()
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2, Greeting: "Привет!"}

	t.Run("peer with avatar", func(t *testing.T) {
		sender := &models.Profile{ActorID: 1, DisplayName: "Петя", AvatarRef: "photo-1"}
		msg := r.RequestReceived(req, sender, nil)

		assert.Equal(t, "photo-1", msg.PhotoRef)
		assert.Contains(t, msg.Text, "Тебе пришла заявка")
		assert.Contains(t, msg.Text, "Привет!")
		assert.Contains(t, msg.Text, "Контакты откроются")
		require.Len(t, msg.Buttons, 1)
		assert.Equal(t, CallbackAccept+":"+req.ID.String(), msg.Buttons[0][0].Data)
	})

	t.Run("project application", func(t *testing.T) {
		project := &models.Project{Title: "Bot"}
		msg := r.RequestReceived(req, nil, project)

		assert.Empty(t, msg.PhotoRef)
		assert.Contains(t, msg.Text, "На твой проект")
		assert.Contains(t, msg.Text, "Telegram ID: 1")
	})
}

func TestRenderer_AcceptedForRequester(t *testing.T) {
	r := newRenderer()
	req := &models.Request{ID: uuid.New(), FromActorID: 1, ToActorID: 2}

	t.Run("peer with username", func(t *testing.T) {
		msg := r.AcceptedForRequester(req, &models.Profile{ActorID: 2, Username: "bob"}, nil)
		assert.Contains(t, msg.Text, "Можешь писать: @bob")
	})

	t.Run("peer without username", func(t *testing.T) {
		msg := r.AcceptedForRequester(req, &models.Profile{ActorID: 2}, nil)
		assert.Contains(t, msg.Text, "Его внутренний ID: 2")
	})

	t.Run("project prefers chat link", func(t *testing.T) {
		project := &models.Project{Title: "Bot", ChatLink: "https://t.me/+team"}
		msg := r.AcceptedForRequester(req, &models.Profile{ActorID: 2, Username: "owner"}, project)
		assert.Contains(t, msg.Text, "https://t.me/+team")
		assert.NotContains(t, msg.Text, "@owner")
	})

	t.Run("project falls back to owner contact", func(t *testing.T) {
		msg := r.AcceptedForRequester(req, nil, &models.Project{Title: "Bot"})
		assert.Contains(t, msg.Text, "id: 2")
	})
}

func TestRenderer_AcceptedForRecipient(t *testing.T) {
	r := newRenderer()
	req := &models.Request{FromActorID: 1, ToActorID: 2}

	assert.Equal(t, "Контакт отправителя: @alice",
		r.AcceptedForRecipient(req, &models.Profile{ActorID: 1, Username: "alice"}, nil).Text)
	assert.Contains(t, r.AcceptedForRecipient(req, nil, &models.Project{Title: "X"}).Text, "Кандидат: id: 1")
}

func TestRenderer_CapacityFullForRequester(t *testing.T) {
	project := &models.Project{ID: uuid.New(), Title: "Chess bot", ChatLink: "https://t.me/+chat"}

	msg := newRenderer().CapacityFullForRequester(project, "@owner")

	assert.Contains(t, msg.Text, "«Chess bot»")
	assert.Contains(t, msg.Text, "команда уже укомплектована")
	assert.Contains(t, msg.Text, "не засчитан")
	assert.Contains(t, msg.Text, "@owner")
	assert.NotContains(t, msg.Text, "t.me")
	assert.Empty(t, msg.Buttons)
}

func TestRenderer_OperatorAlertOmitsZeroIDs(t *testing.T) {
	msg := newRenderer().OperatorAlert(0, 0, "*pgconn.PgError")
	assert.Equal(t, "🔥 Ошибка в боте.\nИсключение: *pgconn.PgError", msg.Text)

	msg = newRenderer().OperatorAlert(10, 20, "panic")
	assert.Contains(t, msg.Text, "Пользователь: 10")
	assert.Contains(t, msg.Text, "Чат: 20")
}

func TestLogDispatcher_AlwaysSucceeds(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := NewLogDispatcher(zap.New(core))

	assert.True(t, d.Notify(context.Background(), 3, Message{Text: "hi", Buttons: DecisionButtons(uuid.New())}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["to"])
}
