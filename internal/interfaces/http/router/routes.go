package router

import (
	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/interfaces/http/handler"
)

const (
	authenticated = identity.CapabilityAuthenticated
	admin         = identity.CapabilityAdmin
	management    = identity.CapabilityManagement
	compliance    = identity.CapabilityCompliance
)

// Handlers bundles every HTTP handler mounted under the API prefix
type Handlers struct {
	Auth           *handler.AuthHandler
	Account        *handler.AccountHandler
	Project        *handler.ProjectHandler
	Stand          *handler.StandHandler
	Requirement    *handler.RequirementHandler
	Submission     *handler.SubmissionHandler
	Agreement      *handler.AgreementHandler
	LoanAccount    *handler.LoanAccountHandler
	Profile        *handler.ProfileHandler
	Notification   *handler.NotificationHandler
	Audit          *handler.AuditHandler
	Report         *handler.ReportHandler
	ContactSetting *handler.ContactSettingHandler
	Import         *handler.ImportHandler
	Outbox         *handler.OutboxHandler
}

// Guards are the middleware chains placed in front of the two route sets.
// AuthLimit throttles the credential endpoints and may be nil.
type Guards struct {
	AuthLimit gin.HandlerFunc
	Protected []gin.HandlerFunc
}

// PublicRoutes are reachable without a token
func PublicRoutes(h Handlers, authLimit gin.HandlerFunc) *DomainGroup {
	auth := NewDomainGroup("auth", "/auth")
	if authLimit != nil {
		auth.Use(authLimit)
	}
	auth.POST("/login", Public, h.Auth.Login).
		POST("/refresh", Public, h.Auth.RefreshToken).
		POST("/bootstrap", Public, h.Auth.Bootstrap)
	return auth
}

// ProtectedRoutes declares every authenticated route with its capability.
// Static segments are registered ahead of the parameter they shadow.
func ProtectedRoutes(h Handlers, guards ...gin.HandlerFunc) *DomainGroup {
	api := NewDomainGroup("protected", "")
	api.Use(guards...)

	api.Group("session", "/auth").
		POST("/logout", authenticated, h.Auth.Logout).
		GET("/me", authenticated, h.Auth.GetCurrentAccount)

	api.Group("accounts", "/accounts").
		POST("", admin, h.Account.Create).
		GET("", admin, h.Account.List)
	api.GET("/agents", admin, h.Account.ListAgents)
	api.GET("/audit-logs", compliance, h.Audit.Query)

	api.Group("projects", "/projects").
		POST("", admin, h.Project.Create).
		GET("", authenticated, h.Project.List).
		GET("/:id", authenticated, h.Project.Get).
		PUT("/:id", admin, h.Project.Update).
		DELETE("/:id", admin, h.Project.Delete).
		POST("/:id/stands", admin, h.Stand.Create)

	api.Group("stands", "/stands").
		GET("", management, h.Stand.List).
		GET("/available", authenticated, h.Stand.ListAvailable).
		GET("/:id", authenticated, h.Stand.Get).
		PUT("/:id", admin, h.Stand.Update).
		DELETE("/:id", admin, h.Stand.Delete).
		PUT("/:id/status", admin, h.Stand.ChangeStatus).
		POST("/:id/mandate", admin, h.Stand.AssignMandate).
		POST("/:id/mandate/accept", authenticated, h.Stand.AcceptMandate).
		POST("/:id/mandate/reject", authenticated, h.Stand.RejectMandate).
		GET("/:id/mandate/history", management, h.Stand.MandateHistory)

	api.Group("requirements", "/requirements").
		GET("", authenticated, h.Requirement.List).
		POST("", admin, h.Requirement.Create).
		PUT("/order", admin, h.Requirement.Reorder).
		GET("/:id", authenticated, h.Requirement.Get).
		PUT("/:id", admin, h.Requirement.Update).
		DELETE("/:id", admin, h.Requirement.Delete)

	api.Group("offers", "/offers").
		POST("", authenticated, h.Submission.CreateOffer).
		GET("", authenticated, h.Submission.ListOffers).
		GET("/:id", authenticated, h.Submission.GetOffer).
		PUT("/:id/status", management, h.Submission.UpdateOfferStatus)

	api.Group("property-applications", "/property-applications").
		POST("", authenticated, h.Submission.CreatePropertyApplication).
		GET("", authenticated, h.Submission.ListPropertyApplications).
		GET("/:id", authenticated, h.Submission.GetPropertyApplication).
		PUT("/:id/status", management, h.Submission.UpdatePropertyApplicationStatus)

	api.Group("account-openings", "/account-openings").
		POST("", authenticated, h.Submission.CreateAccountOpening).
		GET("", authenticated, h.Submission.ListAccountOpenings).
		GET("/:id", authenticated, h.Submission.GetAccountOpening).
		POST("/:id/approve", management, h.Submission.ApproveAccountOpening).
		POST("/:id/reject", management, h.Submission.RejectAccountOpening).
		PUT("/:id/open", management, h.Submission.OpenAccount).
		POST("/:id/deposits", management, h.Submission.RecordDeposit)

	api.Group("loan-applications", "/loan-applications").
		POST("", authenticated, h.Submission.CreateLoanApplication).
		GET("", authenticated, h.Submission.ListLoanApplications).
		GET("/:id", authenticated, h.Submission.GetLoanApplication).
		POST("/:id/decision", management, h.Submission.DecideLoanApplication).
		POST("/:id/team-reply", management, h.Submission.ProcessTeamReply)

	api.Group("agreements", "/agreements").
		POST("", management, h.Agreement.Create).
		GET("", authenticated, h.Agreement.List).
		GET("/:id", authenticated, h.Agreement.Get).
		POST("/:id/sign", authenticated, h.Agreement.Sign).
		POST("/:id/documents", authenticated, h.Agreement.UploadDocument)

	api.Group("loan-accounts", "/loan-accounts").
		POST("", admin, h.LoanAccount.Create).
		GET("/me", authenticated, h.LoanAccount.ListMine).
		GET("/:realtor", authenticated, h.LoanAccount.ListFor)

	api.Group("profiles", "/profiles").
		GET("", compliance, h.Profile.List).
		GET("/:account_number", compliance, h.Profile.Get).
		POST("/:account_number/deletion-request", compliance, h.Profile.RequestDeletion).
		POST("/:account_number/deletion-approval", admin, h.Profile.ApproveDeletion).
		DELETE("/:account_number", compliance, h.Profile.Delete)

	api.GET("/notifications", management, h.Notification.List)

	api.Group("reports", "/reports").
		GET("/properties.csv", management, h.Report.Properties).
		GET("/mandates.csv", management, h.Report.Mandates).
		GET("/loans.csv", management, h.Report.Loans)

	api.Group("contact-settings", "/contact-settings").
		GET("/:channel", admin, h.ContactSetting.Get).
		PUT("/:channel", admin, h.ContactSetting.Update).
		DELETE("/:channel", admin, h.ContactSetting.Reset)

	api.POST("/imports/stands", admin, h.Import.ImportStands)
	api.GET("/imported-accounts", compliance, h.Import.ListImportedAccounts)

	api.Group("outbox", "/admin/outbox").
		GET("/stats", admin, h.Outbox.GetStats).
		GET("/dead", admin, h.Outbox.GetDeadLetterEntries).
		POST("/dead/retry-all", admin, h.Outbox.RetryAllDeadEntries).
		POST("/dead/:id/retry", admin, h.Outbox.RetryDeadEntry)

	return api
}

// RegisterAPI mounts the public and protected route sets on the router
func RegisterAPI(r *Router, h Handlers, guards Guards) *Router {
	return r.Register(PublicRoutes(h, guards.AuthLimit)).
		Register(ProtectedRoutes(h, guards.Protected...))
}
