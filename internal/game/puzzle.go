package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/facequest/trainer/internal/capture"
	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/evaluate"
	"github.com/facequest/trainer/internal/inference"
	"github.com/facequest/trainer/internal/score"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Level is the board size and base reward for a difficulty.
type Level struct {
	Difficulty Difficulty `json:"difficulty"`
	Grid       int        `json:"grid"`
	Base       int        `json:"base"`
}

var levels = map[Difficulty]Level{
	Easy:   {Difficulty: Easy, Grid: 2, Base: 10},
	Medium: {Difficulty: Medium, Grid: 3, Base: 20},
	Hard:   {Difficulty: Hard, Grid: 4, Base: 30},
}

func LevelFor(d Difficulty) (Level, bool) {
	l, ok := levels[d]
	return l, ok
}

// Points is the reward for finishing a board: the level's base plus up to
// ten for efficiency, never negative.
func (l Level) Points(moves int) int {
	pieces := l.Grid * l.Grid
	return l.Base + max(0, 10-moves/pieces)
}

// Piece is one tile of the sliding puzzle.
type Piece struct {
	ID           int `json:"id"`
	CorrectIndex int `json:"correctIndex"`
	CurrentIndex int `json:"currentIndex"`
}

type PuzzleState string

const (
	SelectingDifficulty PuzzleState = "selecting_difficulty"
	Assembling          PuzzleState = "assembling"
	Quizzing            PuzzleState = "quizzing"
	Complete            PuzzleState = "complete"
)

type PuzzleConfig struct {
	// Emotions the picture is drawn from; defaults to emotion.PuzzleEmotions.
	Emotions []string
	// Pause between assembling the picture and the quiz.
	Pause time.Duration
	Rand  *rand.Rand
	Now   func() time.Time

	// Classifier and Frames enable answering the quiz with the camera.
	Classifier Classifier
	Frames     capture.FrameSource
}

type PuzzleSnapshot struct {
	Mode           emotion.Mode      `json:"mode"`
	State          PuzzleState       `json:"state"`
	Level          *Level            `json:"level,omitempty"`
	Pieces         []Piece           `json:"pieces,omitempty"`
	Solved         bool              `json:"solved"`
	Picture        string            `json:"picture,omitempty"`
	Emotion        string            `json:"emotion,omitempty"`
	Options        []string          `json:"options,omitempty"`
	WrongAnswers   int               `json:"wrongAnswers"`
	HintVisible    bool              `json:"hintVisible"`
	CameraAnswer   bool              `json:"cameraAnswer"`
	LastVerdict    *evaluate.Verdict `json:"lastVerdict,omitempty"`
	RoundPoints    int               `json:"roundPoints,omitempty"`
	Score          int               `json:"score"`
	Moves          int               `json:"moves"`
	ElapsedSeconds int               `json:"elapsedSeconds"`
}

// Puzzle is the sliding picture puzzle followed by a "which emotion is
// this" quiz.
type Puzzle struct {
	cfg    PuzzleConfig
	notify Notifier
	logger *slog.Logger
	score  *score.Keeper
	sched  *capture.Scheduler

	mu      sync.Mutex
	state   PuzzleState
	level   Level
	emotion string
	picture string
	pieces  []Piece
	solved  bool
	options []string
	wrong   int
	hint    bool
	last    *evaluate.Verdict
	points  int
	timers  *timers
}

func NewPuzzle(cfg PuzzleConfig, notify Notifier, logger *slog.Logger) *Puzzle {
	if len(cfg.Emotions) == 0 {
		cfg.Emotions = emotion.PuzzleEmotions()
	}
	if cfg.Pause <= 0 {
		cfg.Pause = 2000 * time.Millisecond
	}
	if cfg.Rand == nil {
		cfg.Rand = newRand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Puzzle{
		cfg:    cfg,
		notify: orDiscard(notify),
		logger: logger.With("mode", string(emotion.ModePuzzle)),
		score:  score.New(cfg.Now),
		state:  SelectingDifficulty,
	}
	p.timers = newTimers(&p.mu)
	if cfg.Classifier != nil && cfg.Frames != nil {
		p.sched = capture.NewScheduler(cfg.Frames, logger)
		p.sched.OnTick(p.captureAnswer)
		p.sched.Start(capture.Manual)
	}
	return p
}

// SelectDifficulty starts a round at the chosen level.
func (p *Puzzle) SelectDifficulty(d Difficulty) error {
	lvl, ok := LevelFor(d)
	if !ok {
		return fmt.Errorf("difficulty %q: %w", d, ErrInvalidMove)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != SelectingDifficulty {
		return ErrInvalidState
	}
	p.level = lvl
	p.newRoundLocked()
	p.emitLocked()
	return nil
}

func (p *Puzzle) newRoundLocked() {
	p.timers.cancelAll()
	p.emotion = p.cfg.Emotions[p.cfg.Rand.IntN(len(p.cfg.Emotions))]
	p.picture = pickPicture(p.emotion, p.cfg.Rand)
	p.pieces = scramble(p.level.Grid*p.level.Grid, p.cfg.Rand)
	p.solved = false
	p.options = nil
	p.wrong = 0
	p.hint = false
	p.last = nil
	p.points = 0
	p.state = Assembling
	p.score.NewRound()
	p.score.StartClock()
}

// scramble returns n pieces in a uniformly random arrangement that is
// never already solved.
func scramble(n int, r *rand.Rand) []Piece {
	perm := r.Perm(n)
	for n > 1 && isIdentity(perm) {
		perm = r.Perm(n)
	}
	pieces := make([]Piece, n)
	for i := range pieces {
		pieces[i] = Piece{ID: i + 1, CorrectIndex: i, CurrentIndex: perm[i]}
	}
	return pieces
}

func isIdentity(perm []int) bool {
	for i, v := range perm {
		if i != v {
			return false
		}
	}
	return true
}

// Swap moves a piece to target, exchanging places with whatever piece is
// there. Dropping a piece on its own position is not a move.
func (p *Puzzle) Swap(pieceID, target int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Assembling {
		return ErrInvalidState
	}
	if p.solved {
		return ErrBusy
	}
	if target < 0 || target >= len(p.pieces) {
		return fmt.Errorf("target %d: %w", target, ErrInvalidMove)
	}
	from := -1
	for i, pc := range p.pieces {
		if pc.ID == pieceID {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("piece %d: %w", pieceID, ErrInvalidMove)
	}
	if p.pieces[from].CurrentIndex == target {
		return nil
	}
	for i := range p.pieces {
		if p.pieces[i].CurrentIndex == target {
			p.pieces[i].CurrentIndex = p.pieces[from].CurrentIndex
			break
		}
	}
	p.pieces[from].CurrentIndex = target
	p.score.Move()

	if allHome(p.pieces) {
		p.solved = true
		p.options = p.quizOptionsLocked()
		p.timers.after(p.cfg.Pause, func() {
			p.state = Quizzing
			p.emitLocked()
		})
	}
	p.emitLocked()
	return nil
}

// pickPicture draws one of the emotion's images, or its emoji when it has none.
func pickPicture(label string, r *rand.Rand) string {
	info, _ := emotion.Lookup(label)
	if len(info.Images) > 0 {
		return info.Images[r.IntN(len(info.Images))]
	}
	return info.Emoji
}

func allHome(pieces []Piece) bool {
	for _, pc := range pieces {
		if pc.CurrentIndex != pc.CorrectIndex {
			return false
		}
	}
	return true
}

// quizOptionsLocked returns the puzzle emotion plus three distractors drawn
// without replacement, in random order.
func (p *Puzzle) quizOptionsLocked() []string {
	target := emotion.Key(p.emotion)
	var rest []string
	for _, e := range p.cfg.Emotions {
		if emotion.Key(e) != target {
			rest = append(rest, emotion.Display(e))
		}
	}
	rest = shuffle(p.cfg.Rand, rest)
	opts := append([]string{emotion.Display(target)}, rest[:min(3, len(rest))]...)
	return shuffle(p.cfg.Rand, opts)
}

// Answer checks a quiz answer. Wrong answers are counted but cost nothing.
func (p *Puzzle) Answer(label string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Quizzing {
		return false, ErrInvalidState
	}
	if !evaluate.Evaluate(emotion.Prediction{Emotion: label}, p.emotion) {
		p.wrong++
		p.emitLocked()
		return false, nil
	}
	p.finishLocked()
	return true, nil
}

// CaptureAnswer answers the quiz by making the face instead of tapping.
func (p *Puzzle) CaptureAnswer() (bool, error) {
	if p.sched == nil {
		return false, fmt.Errorf("camera answers disabled: %w", ErrInvalidState)
	}
	p.mu.Lock()
	quizzing := p.state == Quizzing
	p.mu.Unlock()
	if !quizzing {
		return false, ErrInvalidState
	}
	if !p.sched.Trigger() {
		return false, ErrBusy
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Complete, nil
}

func (p *Puzzle) captureAnswer(ctx context.Context, f emotion.Frame) {
	p.mu.Lock()
	if p.state != Quizzing {
		p.mu.Unlock()
		return
	}
	target := emotion.Display(p.emotion)
	p.mu.Unlock()

	pred, err := p.cfg.Classifier.Classify(ctx, f, inference.Request{Mode: inference.ModeMimic, Target: target})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Quizzing || ctx.Err() != nil {
		return
	}
	var v evaluate.Verdict
	if err != nil {
		v = evaluate.Verdict{Target: target, Message: inference.Message(err)}
	} else {
		v = evaluate.Judge(pred, target)
	}
	p.last = &v
	p.notify.Publish(Event{Type: EventVerdict, Mode: emotion.ModePuzzle, Verdict: &v})
	if v.Correct {
		p.finishLocked()
		return
	}
	p.emitLocked()
}

func (p *Puzzle) finishLocked() {
	p.score.StopClock()
	p.points = p.level.Points(p.score.Moves())
	p.score.Add(p.points)
	p.state = Complete
	p.logger.Info("puzzle complete", "difficulty", string(p.level.Difficulty), "moves", p.score.Moves(), "points", p.points)
	p.emitLocked()
}

// Continue plays another board at the same level, keeping the score.
func (p *Puzzle) Continue() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Complete {
		return ErrInvalidState
	}
	p.newRoundLocked()
	p.emitLocked()
	return nil
}

// Replay plays another board at the same level from a zero score.
func (p *Puzzle) Replay() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Complete {
		return ErrInvalidState
	}
	p.score.Reset()
	p.newRoundLocked()
	p.emitLocked()
	return nil
}

// ChooseDifficulty returns to level selection and clears the score.
func (p *Puzzle) ChooseDifficulty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers.cancelAll()
	p.score.Reset()
	p.state = SelectingDifficulty
	p.pieces = nil
	p.options = nil
	p.solved = false
	p.emitLocked()
}

func (p *Puzzle) ToggleHint() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hint = !p.hint
	p.emitLocked()
	return p.hint
}

func (p *Puzzle) Stop() {
	p.mu.Lock()
	p.timers.cancelAll()
	p.score.StopClock()
	p.mu.Unlock()
	if p.sched != nil {
		p.sched.Stop()
	}
}

func (p *Puzzle) Mode() emotion.Mode { return emotion.ModePuzzle }

func (p *Puzzle) Tally() score.Tally { return p.score.Tally() }

func (p *Puzzle) Snapshot() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Puzzle) State() PuzzleState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Puzzle) snapshotLocked() PuzzleSnapshot {
	t := p.score.Tally()
	s := PuzzleSnapshot{
		Mode:           emotion.ModePuzzle,
		State:          p.state,
		Pieces:         append([]Piece(nil), p.pieces...),
		Solved:         p.solved,
		Options:        p.options,
		WrongAnswers:   p.wrong,
		HintVisible:    p.hint,
		CameraAnswer:   p.sched != nil,
		LastVerdict:    p.last,
		RoundPoints:    p.points,
		Score:          t.Score,
		Moves:          t.Moves,
		ElapsedSeconds: t.ElapsedSeconds,
	}
	if p.state != SelectingDifficulty {
		lvl := p.level
		s.Level = &lvl
		s.Picture = p.picture
	}
	// The answer is named once the quiz is over, or earlier as a hint.
	if p.state == Complete || p.hint {
		s.Emotion = emotion.Display(p.emotion)
	}
	return s
}

func (p *Puzzle) emitLocked() {
	p.notify.Publish(Event{Type: EventState, Mode: emotion.ModePuzzle, Snapshot: p.snapshotLocked()})
}
