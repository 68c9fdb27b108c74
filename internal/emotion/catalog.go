package emotion

// Info is the local display data for one emotion.
type Info struct {
	Key         string
	Emoji       string
	Translation string
	Instruction string
	Images      []string
}

var catalog = map[string]Info{
	"happy":    {Key: "happy", Emoji: "😊", Translation: "Vui", Instruction: "Show me a big smile!", Images: []string{"happy1", "happy2"}},
	"sad":      {Key: "sad", Emoji: "😢", Translation: "Buồn", Instruction: "Make a sad face", Images: []string{"sad1", "sad2"}},
	"angry":    {Key: "angry", Emoji: "😠", Translation: "Giận", Instruction: "Show me an angry face", Images: []string{"angry1", "angry2"}},
	"surprise": {Key: "surprise", Emoji: "😮", Translation: "Ngạc nhiên", Instruction: "Look surprised!", Images: []string{"surprise1", "surprise2"}},
	"fear":     {Key: "fear", Emoji: "😨", Translation: "Sợ hãi", Instruction: "Make a scared face", Images: []string{"fear1", "fear2"}},
	"neutral":  {Key: "neutral", Emoji: "😐", Translation: "Trung tính", Instruction: "Stay calm and relaxed"},
	"disgust":  {Key: "disgust", Emoji: "🤢", Translation: "Chán ghét", Images: []string{"Disgusted1", "Disgusted2"}},
	"excited":  {Key: "excited", Emoji: "🤩", Translation: "Phấn khích", Images: []string{"excited1", "excited2"}},
	"shy":      {Key: "shy", Emoji: "😳", Translation: "Ngại ngùng", Images: []string{"shy1", "shy2"}},
}

// Lookup returns the local display data for a label in any case or spelling.
func Lookup(label string) (Info, bool) {
	info, ok := catalog[Key(label)]
	return info, ok
}

// Translate returns the Vietnamese name for a label, or the display form
// when the label is unknown.
func Translate(label string) string {
	if info, ok := Lookup(label); ok {
		return info.Translation
	}
	return Display(label)
}

// HintFor returns the instruction shown under a challenge.
func HintFor(label string) string {
	if info, ok := Lookup(label); ok && info.Instruction != "" {
		return info.Instruction
	}
	if d := Display(label); d != "" {
		return "Try to feel " + d + "!"
	}
	return "Try to feel this emotion!"
}

// NewChallenge builds a challenge for label from the local catalog. ok is
// false when the catalog has no display asset for it.
func NewChallenge(label string) (Challenge, bool) {
	info, ok := Lookup(label)
	if !ok || info.Emoji == "" {
		return Challenge{}, false
	}
	return Challenge{
		Target:      Display(label),
		Asset:       info.Emoji,
		Hint:        HintFor(label),
		Translation: info.Translation,
	}, true
}

// FallbackChallenges is the local pool used when the remote supplier fails.
func FallbackChallenges() []Challenge {
	keys := []string{"happy", "sad", "angry", "surprise", "fear", "neutral"}
	out := make([]Challenge, 0, len(keys))
	for _, k := range keys {
		c, _ := NewChallenge(k)
		out = append(out, c)
	}
	return out
}

// FallbackScenarios is the local pool of stories used when the remote
// supplier fails.
func FallbackScenarios() []Scenario {
	return []Scenario{
		{ID: 1, Narrative: "Bạn nhận được quà từ bạn bè! 🎁", Target: "Happy", HintEmoji: "😊", Illustration: "🎁"},
		{ID: 2, Narrative: "Đồ chơi yêu thích của bạn bị vỡ 💔", Target: "Sad", HintEmoji: "😢", Illustration: "🧸"},
		{ID: 3, Narrative: "Ai đó lấy đồ chơi của bạn mà không hỏi 😤", Target: "Angry", HintEmoji: "😠", Illustration: "🎮"},
		{ID: 4, Narrative: "Bạn tìm thấy một hộp quà bất ngờ kỳ diệu! ✨", Target: "Surprise", HintEmoji: "😮", Illustration: "📦"},
		{ID: 5, Narrative: "Bạn nghe thấy tiếng động lớn trong bóng tối 🌙", Target: "Fear", HintEmoji: "😨", Illustration: "🌙"},
	}
}

// ServedChallengeEmotions are the labels the challenge endpoint draws from.
// Neutral is excluded and disgust is folded into fear.
func ServedChallengeEmotions() []string {
	return []string{"Happy", "Sad", "Angry", "Fear", "Surprise"}
}

// ServedScenarios is the story catalog the scenario endpoint draws from.
func ServedScenarios() []Scenario {
	return []Scenario{
		{ID: 1, Narrative: "Hôm nay là sinh nhật của bạn. Mọi người tặng quà cho bạn.", Target: "Happy", HintEmoji: "🎂", Illustration: "🎁"},
		{ID: 2, Narrative: "Bạn làm rơi cây kem yêu thích.", Target: "Sad", HintEmoji: "🍦", Illustration: "😢"},
		{ID: 3, Narrative: "Bạn bất ngờ nghe tiếng sấm lớn.", Target: "Fear", HintEmoji: "⛈️", Illustration: "😨"},
		{ID: 4, Narrative: "Bạn thấy một món đồ chơi rất lạ.", Target: "Surprise", HintEmoji: "🎁", Illustration: "😲"},
		{ID: 5, Narrative: "Bạn nhận được điểm 10 môn Toán.", Target: "Happy", HintEmoji: "📚", Illustration: "😊"},
		{ID: 6, Narrative: "Bạn bị bạn bè trêu chọc.", Target: "Angry", HintEmoji: "😤", Illustration: "😠"},
		{ID: 7, Narrative: "Bạn thấy một con sâu bò trên tay.", Target: "Fear", HintEmoji: "🐛", Illustration: "😨"},
		{ID: 8, Narrative: "Bạn đang ngồi yên đọc sách.", Target: "Neutral", HintEmoji: "📖", Illustration: "😐"},
	}
}

// MemoryEmotions are the emotions dealt as pairs in the matching game.
func MemoryEmotions() []string {
	return []string{"happy", "sad", "angry", "surprise", "fear", "excited", "shy", "disgust"}
}

// PuzzleEmotions are the pictures the sliding puzzle draws from.
func PuzzleEmotions() []string {
	return []string{"happy", "sad", "angry", "surprise", "fear", "excited", "shy"}
}
