package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"CamuPos/app/config"
	"CamuPos/app/models"
)

// ChatOption is a quick-reply button offered with a bot answer
type ChatOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChatReply is one CamuBot answer
type ChatReply struct {
	Text    string       `json:"text"`
	Options []ChatOption `json:"options,omitempty"`
	Source  string       `json:"source"` // keywords | gemini
}

// Greeting opens every chat
const Greeting = "Halo Bestie! ✨ Kenalin, aku CamuBot. Siap bantuin kamu jajan enak hari ini! Mau pesen apa nih?"

// Completer answers a prompt. The Gemini client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter asks a Gemini model
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter connects to the Gemini API
func NewGeminiCompleter(ctx context.Context, cfg config.AssistantConfig) (*GeminiCompleter, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Complete sends prompt and joins the text parts of the first candidate
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.GenerativeModel(g.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("response has no text")
	}
	return b.String(), nil
}

// Close releases the client
func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}

// ChatService answers storefront questions
type ChatService struct {
	source    StateSource
	completer Completer
	logger    *LoggerService
	timeout   time.Duration
}

// NewChatService creates the bot. A nil completer means keywords only.
func NewChatService(source StateSource, completer Completer, logger *LoggerService) *ChatService {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &ChatService{source: source, completer: completer, logger: logger, timeout: 15 * time.Second}
}

// Reply answers a free-text message
func (s *ChatService) Reply(ctx context.Context, message string) ChatReply {
	message = strings.TrimSpace(message)
	if s.completer != nil && message != "" {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		text, err := s.completer.Complete(ctx, menuPrompt(s.source.State().Products, message))
		if err == nil {
			return ChatReply{Text: strings.TrimSpace(text), Source: "gemini"}
		}
		s.logger.LogWarning("Assistant fell back to keywords", err.Error())
	}
	return KeywordReply(message)
}

// KeywordReply is the offline bot
func KeywordReply(message string) ChatReply {
	low := strings.ToLower(message)
	switch {
	case containsAny(low, "pesen", "order", "cara"):
		return ChatReply{
			Text: "Caranya gampang banget! Pilih menu favorit, klik (+), terus checkout di keranjang. Mau langsung ke menu?",
			Options: []ChatOption{
				{ID: "go_to_menu", Text: "Boleh, anterin!"},
				{ID: "just_looking", Text: "Nanti aja"},
			},
			Source: "keywords",
		}
	case containsAny(low, "bayar", "pembayaran", "qris"):
		return ChatReply{
			Text:    "Bisa bayar pake Cash (tunai) atau QRIS pas mau checkout nanti. Aman kok!",
			Options: []ChatOption{{ID: "how_to_order", Text: "Cara pesennya?"}},
			Source:  "keywords",
		}
	case containsAny(low, "rekomen", "enak"):
		return ChatReply{
			Text:    "Fix Banana Roll Coklat Lumer juaranya! 🏆 Sekali gigit seribu cerita. Mau liat menunya?",
			Options: []ChatOption{{ID: "go_to_menu", Text: "Mau dong!"}},
			Source:  "keywords",
		}
	}
	return ChatReply{
		Text: "Wah, aku belum terlalu ngerti nih. Tapi kalo soal jajan di Camu Camu, aku jagonya! Mau tanya apa?",
		Options: []ChatOption{
			{ID: "how_to_order", Text: "Cara pesen"},
			{ID: "rekomendasi", Text: "Menu rekomen"},
		},
		Source: "keywords",
	}
}

// OptionReply answers a quick-reply button
func OptionReply(id string) ChatReply {
	switch id {
	case "go_to_menu":
		return ChatReply{Text: "Otw menu... ✨ Yuk pilih favoritmu!", Source: "keywords"}
	case "how_to_order":
		return ChatReply{
			Text: "Gampang banget! Kamu tinggal pilih menu favorit, klik tombol (+), trus klik keranjang di pojok kanan bawah buat checkout. Mau aku anter ke menu sekarang?",
			Options: []ChatOption{
				{ID: "go_to_menu", Text: "Boleh, anterin!"},
				{ID: "just_looking", Text: "Aku liat-liat dulu"},
			},
			Source: "keywords",
		}
	case "payment_info":
		return ChatReply{
			Text:    "Tenang, bayarnya bisa pake Cash pas ambil atau Scan QRIS biar sat set! Pas checkout nanti tinggal pilih ya bestie.",
			Options: []ChatOption{{ID: "how_to_order", Text: "Cara pesennya gimana?"}},
			Source:  "keywords",
		}
	case "rekomendasi":
		return ChatReply{
			Text:    "Fix sih, kamu harus coba Banana Roll Coklat Lumer! Sekali gigit seribu cerita pokonya. Mau liat menunya?",
			Options: []ChatOption{{ID: "go_to_menu", Text: "Mau dong!"}},
			Source:  "keywords",
		}
	}
	return KeywordReply("")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func menuPrompt(products []models.Product, question string) string {
	var b strings.Builder
	b.WriteString("Kamu CamuBot, asisten ramah kedai jajanan Camu Camu. Jawab singkat dalam bahasa Indonesia santai. ")
	b.WriteString("Pembayaran: Cash atau QRIS. Hanya rekomendasikan menu yang ada dan stoknya > 0.\n\nMENU:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (%s) %s, stok %d", p.Name, p.Category, FormatRupiah(p.Price), p.Stock)
		for _, v := range p.Variants {
			fmt.Fprintf(&b, "; varian %s +%s", v.Name, FormatRupiah(v.Price))
		}
		if p.Description != "" {
			b.WriteString(": " + p.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nPERTANYAAN: ")
	b.WriteString(question)
	return b.String()
}
