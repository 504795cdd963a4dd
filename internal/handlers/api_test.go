package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"adsduit/internal/accounts"
	"adsduit/internal/blocklist"
	"adsduit/internal/ledger"
	"adsduit/internal/models"
	"adsduit/internal/session"
	"adsduit/internal/store"
	"adsduit/internal/tasks"
)

const testAdDuration = 20 * time.Millisecond

type testEnv struct {
	client    *resty.Client
	blocklist *blocklist.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	st := store.NewMemoryStore()
	dir := accounts.NewDirectory(st)
	gk := session.NewGatekeeper(st, "test-secret", log)
	bl := blocklist.NewManager(st, log)
	svc := ledger.NewService(st, dir, gk, ledger.AdminCredentials{
		Handle: "083832175672",
		Secret: "admin123",
	}, log)
	iss := tasks.NewIssuer(testAdDuration)

	api := NewAPI(svc, gk, iss, bl, log)
	server := httptest.NewServer(NewRouter(api))
	t.Cleanup(server.Close)

	return &testEnv{
		client:    resty.New().SetBaseURL(server.URL),
		blocklist: bl,
	}
}

func (e *testEnv) register(t *testing.T, name, danaNumber, referralCode string) (models.Account, string) {
	t.Helper()

	resp, err := e.client.R().
		SetBody(models.RegisterRequest{
			Name:         name,
			DanaNumber:   danaNumber,
			DanaName:     name,
			Email:        name + "@example.com",
			Password:     "irrelevant",
			ReferralCode: referralCode,
		}).
		Post("/api/user/register")
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	if resp.StatusCode() != 200 {
		t.Fatalf("register returned %d: %s", resp.StatusCode(), resp.Body())
	}

	var account models.Account
	if err := json.Unmarshal(resp.Body(), &account); err != nil {
		t.Fatalf("failed to decode account: %v", err)
	}

	token := resp.Header().Get("Authorization")
	if !strings.HasPrefix(token, "Bearer ") {
		t.Fatalf("register did not issue a bearer token: %q", token)
	}
	return account, token
}

// earn drives CAPTCHA rounds until the balance reaches at least want.
func (e *testEnv) earn(t *testing.T, token string, want int64) models.Account {
	t.Helper()

	var account models.Account
	for i := 0; i < 20; i++ {
		var captcha tasks.Captcha
		resp, err := e.client.R().
			SetHeader("Authorization", token).
			Get("/api/user/tasks/captcha")
		if err != nil || resp.StatusCode() != 200 {
			t.Fatalf("new captcha failed: %v (%d)", err, resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), &captcha); err != nil {
			t.Fatalf("failed to decode captcha: %v", err)
		}

		resp, err = e.client.R().
			SetHeader("Authorization", token).
			SetBody(models.CaptchaAnswerRequest{TaskID: captcha.TaskID, Answer: solveCaptcha(t, captcha.Question)}).
			Post("/api/user/tasks/captcha")
		if err != nil || resp.StatusCode() != 200 {
			t.Fatalf("submit captcha failed: %v (%d)", err, resp.StatusCode())
		}

		var reward struct {
			Reward  int64          `json:"reward"`
			Account models.Account `json:"account"`
		}
		if err := json.Unmarshal(resp.Body(), &reward); err != nil {
			t.Fatalf("failed to decode reward: %v", err)
		}
		account = reward.Account
		if account.Balance >= want {
			return account
		}
	}
	t.Fatalf("could not earn %d within 20 rounds, balance %d", want, account.Balance)
	return account
}

func solveCaptcha(t *testing.T, question string) string {
	t.Helper()

	fields := strings.Fields(question) // "a + b = ?"
	if len(fields) != 5 {
		t.Fatalf("unexpected question %q", question)
	}
	a, _ := strconv.Atoi(fields[0])
	b, _ := strconv.Atoi(fields[2])
	if fields[1] == "+" {
		return strconv.Itoa(a + b)
	}
	return strconv.Itoa(a - b)
}

func (e *testEnv) loginAdmin(t *testing.T) string {
	t.Helper()

	resp, err := e.client.R().
		SetBody(models.LoginRequest{DanaNumber: "083832175672", Password: "admin123"}).
		Post("/api/user/login")
	if err != nil || resp.StatusCode() != 200 {
		t.Fatalf("admin login failed: %v (%d)", err, resp.StatusCode())
	}

	var sess loginResponse
	if err := json.Unmarshal(resp.Body(), &sess); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if !sess.Admin {
		t.Fatal("expected an admin session")
	}
	return resp.Header().Get("Authorization")
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	account, token := env.register(t, "Ayu", "0811111111", "")
	if account.Balance != 0 || account.ReferralCode == "" {
		t.Fatalf("unexpected fresh account: %+v", account)
	}

	// Duplicate handle is a conflict.
	resp, _ := env.client.R().
		SetBody(models.RegisterRequest{Name: "X", DanaNumber: "0811111111", DanaName: "X"}).
		Post("/api/user/register")
	if resp.StatusCode() != 409 {
		t.Errorf("duplicate register = %d, want 409", resp.StatusCode())
	}

	// Login succeeds for a registered handle whatever the password is.
	resp, _ = env.client.R().
		SetBody(models.LoginRequest{DanaNumber: "0811111111", Password: "anything-at-all"}).
		Post("/api/user/login")
	if resp.StatusCode() != 200 {
		t.Errorf("login = %d, want 200", resp.StatusCode())
	}

	// Unknown handle does not.
	resp, _ = env.client.R().
		SetBody(models.LoginRequest{DanaNumber: "0899999999", Password: "pw"}).
		Post("/api/user/login")
	if resp.StatusCode() != 401 {
		t.Errorf("unknown login = %d, want 401", resp.StatusCode())
	}

	// Profile requires a token.
	resp, _ = env.client.R().Get("/api/user/profile")
	if resp.StatusCode() != 401 {
		t.Errorf("unauthenticated profile = %d, want 401", resp.StatusCode())
	}

	resp, _ = env.client.R().SetHeader("Authorization", token).Get("/api/user/profile")
	if resp.StatusCode() != 200 {
		t.Errorf("profile = %d, want 200", resp.StatusCode())
	}
}

func TestEarnAndWithdrawFlow(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "Bima", "0822222222", "")

	account := env.earn(t, token, 100)
	if account.AdsWatched == 0 || account.TotalEarned < account.Balance {
		t.Fatalf("inconsistent account after earning: %+v", account)
	}

	// Below the platform minimum.
	resp, _ := env.client.R().
		SetHeader("Authorization", token).
		SetBody(models.WithdrawRequest{Amount: 99}).
		Post("/api/user/withdrawals")
	if resp.StatusCode() != 422 {
		t.Errorf("below-minimum withdrawal = %d, want 422", resp.StatusCode())
	}

	// More than the balance.
	resp, _ = env.client.R().
		SetHeader("Authorization", token).
		SetBody(models.WithdrawRequest{Amount: account.Balance + 1}).
		Post("/api/user/withdrawals")
	if resp.StatusCode() != 402 {
		t.Errorf("over-balance withdrawal = %d, want 402", resp.StatusCode())
	}

	resp, _ = env.client.R().
		SetHeader("Authorization", token).
		SetBody(models.WithdrawRequest{Amount: 100}).
		Post("/api/user/withdrawals")
	if resp.StatusCode() != 200 {
		t.Fatalf("withdrawal = %d: %s", resp.StatusCode(), resp.Body())
	}

	var withdrawal models.Withdrawal
	if err := json.Unmarshal(resp.Body(), &withdrawal); err != nil {
		t.Fatalf("failed to decode withdrawal: %v", err)
	}
	if withdrawal.Status != models.WithdrawalPending || withdrawal.DanaNumber != "0822222222" {
		t.Fatalf("unexpected withdrawal: %+v", withdrawal)
	}

	resp, _ = env.client.R().SetHeader("Authorization", token).Get("/api/user/withdrawals")
	if resp.StatusCode() != 200 {
		t.Fatalf("withdrawals list = %d, want 200", resp.StatusCode())
	}

	// User tokens must not reach the admin surface.
	resp, _ = env.client.R().SetHeader("Authorization", token).Get("/api/admin/stats")
	if resp.StatusCode() != 403 {
		t.Errorf("user on admin endpoint = %d, want 403", resp.StatusCode())
	}

	adminToken := env.loginAdmin(t)

	resp, _ = env.client.R().
		SetHeader("Authorization", adminToken).
		Post("/api/admin/withdrawals/" + withdrawal.ID + "/approve")
	if resp.StatusCode() != 200 {
		t.Fatalf("approve = %d: %s", resp.StatusCode(), resp.Body())
	}

	var resolved models.Withdrawal
	if err := json.Unmarshal(resp.Body(), &resolved); err != nil {
		t.Fatalf("failed to decode resolved withdrawal: %v", err)
	}
	if resolved.Status != models.WithdrawalApproved || resolved.ProcessedAt == nil {
		t.Fatalf("unexpected resolution: %+v", resolved)
	}

	// Resolution is terminal.
	resp, _ = env.client.R().
		SetHeader("Authorization", adminToken).
		Post("/api/admin/withdrawals/" + withdrawal.ID + "/reject")
	if resp.StatusCode() != 409 {
		t.Errorf("double resolve = %d, want 409", resp.StatusCode())
	}

	var stats models.Stats
	resp, _ = env.client.R().SetHeader("Authorization", adminToken).Get("/api/admin/stats")
	if err := json.Unmarshal(resp.Body(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.TotalUsers != 1 || stats.TotalPaid != 100 || stats.PendingWithdrawals != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestAdViewFlow(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "Citra", "0833333333", "")

	resp, _ := env.client.R().SetHeader("Authorization", token).Post("/api/user/tasks/ad/start")
	if resp.StatusCode() != 200 {
		t.Fatalf("start ad = %d", resp.StatusCode())
	}
	var view tasks.AdView
	if err := json.Unmarshal(resp.Body(), &view); err != nil {
		t.Fatalf("failed to decode ad view: %v", err)
	}

	// Claiming before the duration has elapsed is refused.
	resp, _ = env.client.R().
		SetHeader("Authorization", token).
		SetBody(models.AdCompleteRequest{TaskID: view.TaskID}).
		Post("/api/user/tasks/ad/complete")
	if resp.StatusCode() != 409 {
		t.Errorf("early completion = %d, want 409", resp.StatusCode())
	}

	time.Sleep(testAdDuration + 10*time.Millisecond)

	resp, _ = env.client.R().
		SetHeader("Authorization", token).
		SetBody(models.AdCompleteRequest{TaskID: view.TaskID}).
		Post("/api/user/tasks/ad/complete")
	if resp.StatusCode() != 200 {
		t.Fatalf("completion = %d: %s", resp.StatusCode(), resp.Body())
	}

	var reward rewardResponse
	if err := json.Unmarshal(resp.Body(), &reward); err != nil {
		t.Fatalf("failed to decode reward: %v", err)
	}
	if reward.Reward < 35 || reward.Reward > 50 {
		t.Errorf("reward %d outside 35..50", reward.Reward)
	}
	if reward.Account.Balance != reward.Reward {
		t.Errorf("balance %d != reward %d", reward.Account.Balance, reward.Reward)
	}
}

func TestReferralOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	referrer, referrerToken := env.register(t, "Dewi", "0844444444", "")
	referred, _ := env.register(t, "Eka", "0855555555", referrer.ReferralCode)

	if referred.Balance != 50 {
		t.Errorf("referred signup balance = %d, want the signup bonus 50", referred.Balance)
	}

	resp, _ := env.client.R().SetHeader("Authorization", referrerToken).Get("/api/user/referrals")
	if resp.StatusCode() != 200 {
		t.Fatalf("referrals list = %d, want 200", resp.StatusCode())
	}
	var records []models.Referral
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		t.Fatalf("failed to decode referrals: %v", err)
	}
	if len(records) != 1 || records[0].Bonus != 0 || records[0].ReferredName != "Eka" {
		t.Fatalf("unexpected referral records: %+v", records)
	}
}

func TestBlockedIPRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.client.R().Get("/api/user/profile")
	if resp.StatusCode() == 403 {
		t.Fatal("client should not be blocked yet")
	}

	if err := env.blocklist.Block(context.Background(), "127.0.0.1", "abuse"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	resp, _ = env.client.R().Get("/api/user/profile")
	if resp.StatusCode() != 403 {
		t.Errorf("blocked client = %d, want 403", resp.StatusCode())
	}

	if err := env.blocklist.Unblock(context.Background(), "127.0.0.1"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	resp, _ = env.client.R().Get("/api/user/profile")
	if resp.StatusCode() == 403 {
		t.Error("unblocked client still rejected")
	}
}

func TestAdminBlocklistEndpoints(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.loginAdmin(t)

	resp, _ := env.client.R().SetHeader("Authorization", adminToken).Get("/api/admin/blocked-ips")
	if resp.StatusCode() != 204 {
		t.Errorf("empty blocklist = %d, want 204", resp.StatusCode())
	}

	resp, _ = env.client.R().
		SetHeader("Authorization", adminToken).
		SetBody(models.BlockIPRequest{IP: "192.0.2.7", Reason: "abuse"}).
		Post("/api/admin/blocked-ips")
	if resp.StatusCode() != 200 {
		t.Fatalf("block = %d", resp.StatusCode())
	}

	resp, _ = env.client.R().SetHeader("Authorization", adminToken).Get("/api/admin/blocked-ips")
	if resp.StatusCode() != 200 {
		t.Fatalf("blocklist = %d, want 200", resp.StatusCode())
	}
	var blocked []models.BlockedIP
	if err := json.Unmarshal(resp.Body(), &blocked); err != nil {
		t.Fatalf("failed to decode blocklist: %v", err)
	}
	if len(blocked) != 1 || blocked[0].IP != "192.0.2.7" {
		t.Fatalf("unexpected blocklist: %+v", blocked)
	}

	resp, _ = env.client.R().
		SetHeader("Authorization", adminToken).
		Delete("/api/admin/blocked-ips/192.0.2.7")
	if resp.StatusCode() != 200 {
		t.Fatalf("unblock = %d", resp.StatusCode())
	}

	resp, _ = env.client.R().SetHeader("Authorization", adminToken).Get("/api/admin/blocked-ips")
	if resp.StatusCode() != 204 {
		t.Errorf("blocklist after unblock = %d, want 204", resp.StatusCode())
	}
}
