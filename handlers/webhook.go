package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/bbasli/bdrive/config"
	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

const (
	EventUserCreated       = "user.created"
	EventUserUpdated       = "user.updated"
	EventMembershipCreated = "membership.created"
	EventMembershipUpdated = "membership.updated"
	EventMembershipDeleted = "membership.deleted"
)

type IdentityEvent struct {
	Type string            `json:"type" binding:"required"`
	Data IdentityEventData `json:"data"`
}

// IdentityEventData names the user either by token identifier or by subject,
// which is qualified with the configured issuer.
type IdentityEventData struct {
	TokenIdentifier string `json:"token_identifier"`
	Subject         string `json:"subject"`
	Name            string `json:"name"`
	Image           string `json:"image"`
	OrgID           string `json:"org_id"`
	Role            string `json:"role"`
}

func (d IdentityEventData) tokenIdentifier() string {
	if d.TokenIdentifier != "" {
		return d.TokenIdentifier
	}
	if d.Subject == "" {
		return ""
	}
	issuer := ""
	if config.AppConfig != nil {
		issuer = config.AppConfig.Auth.Issuer
	}
	return issuer + "|" + d.Subject
}

// role accepts both plain roles and the "org:" prefixed form some identity
// providers emit.
func (d IdentityEventData) role() models.Role {
	return models.Role(strings.TrimPrefix(strings.ToLower(d.Role), "org:"))
}

// IdentityWebhook keeps users and org memberships in sync with the identity
// provider.
func IdentityWebhook(c *gin.Context) {
	var event IdentityEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	tokenIdentifier := event.Data.tokenIdentifier()
	if tokenIdentifier == "" {
		utils.Error(c, http.StatusBadRequest, "token_identifier or subject is required")
		return
	}

	ctx := c.Request.Context()
	users := getServices().User
	var err error
	switch event.Type {
	case EventUserCreated:
		_, err = users.CreateUser(ctx, tokenIdentifier, event.Data.Name, event.Data.Image)
	case EventUserUpdated:
		err = users.UpdateUser(ctx, tokenIdentifier, event.Data.Name, event.Data.Image)
	case EventMembershipCreated:
		err = users.AddOrgIDToUser(ctx, tokenIdentifier, event.Data.OrgID, event.Data.role())
	case EventMembershipUpdated:
		err = users.UpdateRoleInOrgForUser(ctx, tokenIdentifier, event.Data.OrgID, event.Data.role())
	case EventMembershipDeleted:
		err = users.RemoveOrgIDFromUser(ctx, tokenIdentifier, event.Data.OrgID)
	default:
		slog.WarnContext(ctx, "identity webhook event ignored", slog.String("type", event.Type))
		utils.SuccessWithMessage(c, "ignored", gin.H{"type": event.Type})
		return
	}
	if respondServiceError(c, err) {
		return
	}

	slog.InfoContext(ctx, "identity webhook applied",
		slog.String("type", event.Type),
		slog.String("token_identifier", tokenIdentifier),
	)
	utils.Success(c, gin.H{"type": event.Type})
}
