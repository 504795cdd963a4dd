package tasks

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeCaptcha = "captcha"
	TypeAd      = "ad"

	rewardMin = 35
	rewardMax = 50

	captchaTTL = 5 * time.Minute

	// DefaultAdDuration is how long an ad view must run before it pays out.
	DefaultAdDuration = 15 * time.Second
)

var (
	ErrUnknownTask = errors.New("unknown or expired task")
	ErrWrongAnswer = errors.New("wrong answer")
	ErrAdNotDone   = errors.New("ad has not finished playing")
)

// Captcha is the challenge handed to a client. The answer stays server-side.
type Captcha struct {
	TaskID   string `json:"taskId"`
	Question string `json:"question"`
	Reward   int64  `json:"reward"`
}

// AdView is a started ad session; it becomes redeemable once the duration
// has elapsed.
type AdView struct {
	TaskID          string `json:"taskId"`
	DurationSeconds int    `json:"durationSeconds"`
}

type captchaState struct {
	ownerID  string
	answer   string
	reward   int64
	issuedAt time.Time
}

type adState struct {
	ownerID   string
	startedAt time.Time
}

// Issuer hands out reward tasks and redeems them exactly once. Tasks live in
// memory only: an abandoned challenge simply never pays out, so losing them
// on restart costs nothing.
type Issuer struct {
	mu         sync.Mutex
	captchas   map[string]captchaState
	ads        map[string]adState
	adDuration time.Duration
}

func NewIssuer(adDuration time.Duration) *Issuer {
	return &Issuer{
		captchas:   make(map[string]captchaState),
		ads:        make(map[string]adState),
		adDuration: adDuration,
	}
}

// NewCaptcha issues a fresh arithmetic challenge for the account.
func (iss *Issuer) NewCaptcha(ownerID string) Captcha {
	a := rand.Intn(20) + 1
	b := rand.Intn(10) + 1

	var question string
	var answer int
	if rand.Intn(2) == 0 {
		question = fmt.Sprintf("%d + %d = ?", a, b)
		answer = a + b
	} else {
		question = fmt.Sprintf("%d - %d = ?", a, b)
		answer = a - b
	}

	c := Captcha{
		TaskID:   uuid.NewString(),
		Question: question,
		Reward:   randReward(),
	}

	iss.mu.Lock()
	defer iss.mu.Unlock()
	iss.prune()
	iss.captchas[c.TaskID] = captchaState{
		ownerID:  ownerID,
		answer:   strconv.Itoa(answer),
		reward:   c.Reward,
		issuedAt: time.Now(),
	}
	return c
}

// SubmitCaptcha redeems a challenge. A wrong answer keeps the task alive so
// the same question can be retried.
func (iss *Issuer) SubmitCaptcha(taskID, ownerID, answer string) (int64, error) {
	iss.mu.Lock()
	defer iss.mu.Unlock()

	state, ok := iss.captchas[taskID]
	if !ok || state.ownerID != ownerID || time.Since(state.issuedAt) > captchaTTL {
		return 0, ErrUnknownTask
	}
	if state.answer != answer {
		return 0, ErrWrongAnswer
	}

	delete(iss.captchas, taskID)
	return state.reward, nil
}

// StartAd opens a timed ad view for the account.
func (iss *Issuer) StartAd(ownerID string) AdView {
	v := AdView{
		TaskID:          uuid.NewString(),
		DurationSeconds: int(iss.adDuration / time.Second),
	}

	iss.mu.Lock()
	defer iss.mu.Unlock()
	iss.prune()
	iss.ads[v.TaskID] = adState{ownerID: ownerID, startedAt: time.Now()}
	return v
}

// CompleteAd redeems an ad view once the full duration has elapsed. The
// reward is drawn at completion time, as the original platform did.
func (iss *Issuer) CompleteAd(taskID, ownerID string) (int64, error) {
	iss.mu.Lock()
	defer iss.mu.Unlock()

	state, ok := iss.ads[taskID]
	if !ok || state.ownerID != ownerID {
		return 0, ErrUnknownTask
	}
	if time.Since(state.startedAt) < iss.adDuration {
		return 0, ErrAdNotDone
	}

	delete(iss.ads, taskID)
	return randReward(), nil
}

// prune drops stale entries; called with the lock held.
func (iss *Issuer) prune() {
	now := time.Now()
	for id, c := range iss.captchas {
		if now.Sub(c.issuedAt) > captchaTTL {
			delete(iss.captchas, id)
		}
	}
	for id, a := range iss.ads {
		if now.Sub(a.startedAt) > iss.adDuration+captchaTTL {
			delete(iss.ads, id)
		}
	}
}

func randReward() int64 {
	return int64(rand.Intn(rewardMax-rewardMin+1) + rewardMin)
}
