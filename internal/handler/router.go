package handler

import (
	"conference_registration/internal/middleware"
	"conference_registration/internal/model"
	"conference_registration/internal/service"
	"conference_registration/internal/utils"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth         service.AuthService
	Registration service.RegistrationService
	Teams        service.TeamService
	Payments     service.PaymentService
	Participants service.ParticipantService
	CheckIns     service.CheckInService
	Admin        service.AdminService
}

// RegisterRoutes mounts every route group under rg.
func RegisterRoutes(rg *gin.RouterGroup, svc Services, jwtUtil *utils.JWTUtil) {
	authMW := middleware.JWTAuthMiddleware(jwtUtil)
	participantMW := middleware.RequireCapability(model.CapParticipate)

	NewAuthHandler(svc.Auth).RegisterAuthRoutes(rg, authMW)
	NewPublicHandler(svc.Registration).RegisterPublicRoutes(rg)
	NewPaymentHandler(svc.Payments).RegisterPaymentRoutes(rg, authMW, participantMW, middleware.AdminMiddleware())
	NewTeamHandler(svc.Teams).RegisterTeamRoutes(rg, authMW, participantMW)
	NewAmbassadorHandler(svc.Payments, svc.Participants, svc.Admin).RegisterAmbassadorRoutes(rg, authMW,
		middleware.RequireCapability(model.CapLookupParticipants),
		middleware.RequireCapability(model.CapCollectCash))
	NewRegistrationTeamHandler(svc.Registration, svc.Payments, svc.Participants, svc.Admin).
		RegisterRegistrationTeamRoutes(rg, authMW, middleware.RequireCapability(model.CapRegisterManual))
	NewAdminHandler(svc.Admin, svc.Payments, svc.Participants, svc.CheckIns).
		RegisterAdminRoutes(rg, authMW, middleware.AdminMiddleware())
}
