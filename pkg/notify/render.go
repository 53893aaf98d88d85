package notify

import (
	"fmt"
	"strings"

	"github.com/linkit-hq/linkit-engine/pkg/catalog"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// Renderer builds the user-facing message texts. Profiles are rendered without
// contacts; contacts are revealed only after acceptance.
type Renderer struct {
	catalog *catalog.Catalog
}

// NewRenderer creates a renderer over the given catalog.
func NewRenderer(c *catalog.Catalog) *Renderer {
	return &Renderer{catalog: c}
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return catalog.Placeholder
	}
	return s
}

// ProfileCard renders the public card of a profile.
func (r *Renderer) ProfileCard(p *models.Profile) string {
	lines := []string{
		"Профиль разработчика:",
		"Имя: " + orPlaceholder(p.DisplayName),
		"Роль: " + r.catalog.RoleLabel(p.Role),
		"Язык/стек: " + r.catalog.FormatStack(p.Stack),
		"Фреймворк: " + orPlaceholder(p.Framework),
		"Навыки: " + orPlaceholder(p.Skills),
		"Цели: " + r.catalog.GoalLabel(p.Goal),
		"О себе: " + orPlaceholder(p.About),
	}
	return strings.Join(lines, "\n")
}

// ProjectCard renders the public card of a project. The chat link is never included.
func (r *Renderer) ProjectCard(p *models.Project) string {
	lines := []string{
		"Проект: " + p.Title,
		"Статус: " + r.catalog.StatusLabel(p.Status),
		"Стек: " + r.catalog.FormatStack(p.Stack),
		"Идея: " + orPlaceholder(p.Idea),
		"Кого ищем: " + r.catalog.FormatRoles(p.LookingForRole),
		"Уровень: " + r.catalog.LevelLabel(p.Level),
	}
	if strings.TrimSpace(p.Extra) != "" {
		lines = append(lines, "Ожидания / формат: "+p.Extra)
	}
	capacity := p.Capacity()
	if capacity.FreeSlots != nil {
		lines = append(lines, fmt.Sprintf("Команда: %d/%d", p.CurrentMembers, *p.TeamLimit))
	}
	return strings.Join(lines, "\n")
}

// RequestReceived is sent to the recipient of a new request, with decision buttons.
// sender may be nil when the sender never registered.
func (r *Renderer) RequestReceived(req *models.Request, sender *models.Profile, project *models.Project) Message {
	senderCard := fmt.Sprintf("Telegram ID: %d", int64(req.FromActorID))
	photo := ""
	if sender != nil {
		senderCard = r.ProfileCard(sender)
		photo = sender.AvatarRef
	}

	var b strings.Builder
	if project != nil {
		b.WriteString("На твой проект в Link IT пришла новая заявка.\n\n")
		b.WriteString("Проект:\n" + r.ProjectCard(project) + "\n\n")
		b.WriteString("Кандидат:\n\n" + senderCard + "\n")
	} else {
		b.WriteString("Тебе пришла заявка на сотрудничество в LinkIT.\n\n")
		b.WriteString("Профиль отправителя:\n\n" + senderCard + "\n")
	}
	if req.Greeting != "" {
		b.WriteString("\nСообщение от отправителя:\n" + req.Greeting + "\n")
	}
	if project != nil {
		b.WriteString("\nЕсли ты примешь заявку, я пришлю кандидату контакты проекта и ссылку на беседу (если она указана).")
	} else {
		b.WriteString("\nКонтакты откроются, если ты примешь заявку.")
	}

	return Message{
		Text:     b.String(),
		PhotoRef: photo,
		Buttons:  DecisionButtons(req.ID),
	}
}

// AcceptedForRequester is sent to the requester once their request is accepted.
// recipient is the accepting actor's profile and may be nil.
func (r *Renderer) AcceptedForRequester(req *models.Request, recipient *models.Profile, project *models.Project) Message {
	contact := models.ContactForActor(req.ToActorID)
	if recipient != nil {
		contact = recipient.Contact()
	}

	if project != nil {
		if project.ChatLink != "" {
			contact = project.ChatLink
		}
		return Message{Text: fmt.Sprintf(
			"Тебя приняли в проект «%s» 🎉\n\nСвязаться с командой можно так:\n%s", project.Title, contact)}
	}

	var b strings.Builder
	b.WriteString("Твою заявку приняли 🎉\n\n")
	msg := Message{}
	if recipient != nil {
		b.WriteString("Тот, кто принял заявку:\n\n" + r.ProfileCard(recipient) + "\n\n")
		msg.PhotoRef = recipient.AvatarRef
	}
	if recipient != nil && recipient.Username != "" {
		b.WriteString("Можешь писать: @" + recipient.Username)
	} else {
		b.WriteString("Пользователь принял заявку, но у него нет публичного @username.\n")
		b.WriteString(fmt.Sprintf("Его внутренний ID: %d\n", int64(req.ToActorID)))
		b.WriteString("Если он напишет первым, просто отвечай.")
	}
	msg.Text = b.String()
	return msg
}

// AcceptedForRecipient confirms the acceptance to the recipient and reveals the sender's contact.
func (r *Renderer) AcceptedForRecipient(req *models.Request, sender *models.Profile, project *models.Project) Message {
	contact := models.ContactForActor(req.FromActorID)
	if sender != nil {
		contact = sender.Contact()
	}
	if project != nil {
		return Message{Text: fmt.Sprintf("Ты принял(а) заявку в проект «%s» 🤝\n\nКандидат: %s", project.Title, contact)}
	}
	return Message{Text: "Контакт отправителя: " + contact}
}

// Rejected is sent to the requester after a rejection.
func (r *Renderer) Rejected(project *models.Project) Message {
	if project != nil {
		return Message{Text: fmt.Sprintf("К сожалению, твою заявку в проект «%s» отклонили 🙁", project.Title)}
	}
	return Message{Text: "Твою заявку отклонили. Не принимай это близко к сердцу, это просто люди."}
}

// CapacityFullForOwner tells the owner an acceptance did not add a member.
func (r *Renderer) CapacityFullForOwner(project *models.Project) Message {
	return Message{Text: fmt.Sprintf(
		"Заявка в проект «%s» принята, но команда уже укомплектована: новых мест нет.", project.Title)}
}

// CapacityFullForRequester tells an applicant the owner accepted them after the team
// filled up, so they were not counted as a member. ownerContact still lets them reach out.
func (r *Renderer) CapacityFullForRequester(project *models.Project, ownerContact string) Message {
	return Message{Text: fmt.Sprintf(
		"Заявку в проект «%s» приняли, но команда уже укомплектована: свободных мест нет, "+
			"и в состав ты не засчитан(а).\n\nЕсли хочешь обсудить участие, можно связаться с владельцем:\n%s",
		project.Title, ownerContact)}
}

// Reminder nudges both sides of an accepted request.
func (r *Renderer) Reminder() Message {
	return Message{Text: "Напоминание о контакте в Link IT.\n\n" +
		"У тебя есть принятая заявка на общение, но, кажется, давно не было активности.\n" +
		"Если тема ещё актуальна, можешь написать собеседнику 🙂"}
}

// OperatorAlert is sent to the operator chat after a fatal failure.
// Zero ids are omitted.
func (r *Renderer) OperatorAlert(actor models.ActorID, conversationID int64, errorType string) Message {
	lines := []string{"🔥 Ошибка в боте."}
	if actor != 0 {
		lines = append(lines, fmt.Sprintf("Пользователь: %d", int64(actor)))
	}
	if conversationID != 0 {
		lines = append(lines, fmt.Sprintf("Чат: %d", conversationID))
	}
	lines = append(lines, "Исключение: "+errorType)
	return Message{Text: strings.Join(lines, "\n")}
}
