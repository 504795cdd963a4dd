package handlers

import (
	"github.com/go-chi/chi/v5"

	"adsduit/internal/middlewares"
)

func NewRouter(api *API) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middlewares.Logger(api.log))
	r.Use(middlewares.IPBlock(api.blocklist))

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", api.Register)
		r.Post("/login", api.Login)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Auth(api.sessions))
			r.Get("/profile", api.Profile)
			r.Get("/tasks/captcha", api.NewCaptcha)
			r.Post("/tasks/captcha", api.SubmitCaptcha)
			r.Post("/tasks/ad/start", api.StartAd)
			r.Post("/tasks/ad/complete", api.CompleteAd)
			r.Post("/withdrawals", api.Withdraw)
			r.Get("/withdrawals", api.GetWithdrawals)
			r.Get("/referrals", api.GetReferrals)
			r.Get("/adwatches", api.GetAdWatches)
			r.Post("/logout", api.Logout)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middlewares.Auth(api.sessions))
		r.Use(middlewares.AdminOnly)
		r.Get("/stats", api.AdminStats)
		r.Get("/users", api.AdminUsers)
		r.Get("/withdrawals", api.AdminWithdrawals)
		r.Post("/withdrawals/{id}/approve", api.ApproveWithdrawal)
		r.Post("/withdrawals/{id}/reject", api.RejectWithdrawal)
		r.Get("/blocked-ips", api.BlockedIPs)
		r.Post("/blocked-ips", api.BlockIP)
		r.Delete("/blocked-ips/{ip}", api.UnblockIP)
	})

	return r
}
