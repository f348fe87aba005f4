package services

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CamuPos/app/models"
)

const messageRule = "------------------------------"

// Pantuns close the counter receipt
var Pantuns = []string{
	"Ke pasar beli pepaya, pulangnya mampir ke Senayan. Camu Camu emang slaaaay, bikin mood kamu langsung nyaman! ✨",
	"Makan seblak di pinggir jalan, pedasnya bikin telinga pengang. Sekali nyicip lupakan mantan, Camu Camu bikin hidup makin terang! 🌈",
	"Nonton drakor sambil makan kuaci, ceritanya bikin baper sekali. Camu Camu bestie sejati, temen setia buat asupan hari ini! 💖",
	"Jalan-jalan ke Kota Tua, jangan lupa beli kacamata. Camu Camu favorit kita semua, sekali gigit seribu cerita! 📖",
	"Beli baju warnanya ungu, jangan lupa beli buat mama. Hidup emang sering bikin bingung, tapi Camu Camu selalu seirama! 🎵",
	"Pergi healing ke pantai Bali, pulangnya mampir ke Jogja. Camu Camu emang asik sekali, bikin semangat makin membara! 🏖️",
	"Langit biru warnanya cerah, secerah senyummu di pagi hari. Jangan pernah bilang menyerah, Camu Camu siap hibur diri! 😊",
	"Nonton konser Tulus di Jakarta, nangis-nangis bareng kawan. Sekali gigit seribu cerita, Camu Camu emang idaman! 🤩",
}

// FormatRupiah renders an amount the id-ID way: "Rp 12.500"
func FormatRupiah(amount models.Rupiah) string {
	n := int64(amount)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "Rp " + b.String()
}

func itemLines(items models.Items, prefix string) string {
	lines := make([]string, 0, len(items))
	for _, l := range items {
		lines = append(lines, fmt.Sprintf("%s%s x%d = %s", prefix, l.Name, l.Qty, FormatRupiah(l.Subtotal())))
	}
	return strings.Join(lines, "\n")
}

// NewOrderMessage is sent to the customer when a storefront order lands
func NewOrderMessage(o models.Order) string {
	id := o.ID
	if id == "" {
		id = "Web-Order"
	}
	payment := "QRIS (Sudah Lunas ✓)"
	if o.PaymentMethod != models.PaymentQRIS {
		payment = "Cash/Tunai (Belum Lunas - Bayar di Kasir)"
	}
	notes := o.Notes
	if notes == "" {
		notes = "-"
	}

	var b strings.Builder
	b.WriteString("*PESANAN BARU - CAMU CAMU*\n")
	b.WriteString(messageRule + "\n")
	fmt.Fprintf(&b, "ID: %s\nCustomer: %s\nWA: %s\n", id, o.CustomerName, o.CustomerPhone)
	b.WriteString(messageRule + "\n")
	b.WriteString(itemLines(o.Items, "") + "\n")
	b.WriteString(messageRule + "\n")
	fmt.Fprintf(&b, "*TOTAL: %s*\n", FormatRupiah(o.Total))
	fmt.Fprintf(&b, "Bayar: %s\n", payment)
	fmt.Fprintf(&b, "Catatan: %s\n\n", notes)
	b.WriteString("Terima kasih atas pesanannya! 🙏\n")
	b.WriteString("Silakan tunjukkan pesan ini ke kasir jika Anda memilih bayar Cash.")
	return b.String()
}

// ReadyMessage tells the customer the order can be picked up
func ReadyMessage(o models.Order) string {
	return "*PESANAN SIAP DIJEMPUT!* 🍈\n" +
		messageRule + "\n" +
		fmt.Sprintf("Halo Kak %s,\n", o.CustomerName) +
		fmt.Sprintf("Pesanan Kakak dengan ID: *%s* sudah siap dan bisa dijemput di outlet *Camu Camu*.\n\n", o.ID) +
		"Silakan datang dan tunjukkan pesan ini ke tim kami ya.\n" +
		"Sampai ketemu! 🙏\n" +
		messageRule
}

// UnpaidReminderMessage nudges a customer whose order is still unpaid
func UnpaidReminderMessage(o models.Order, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	when := o.CreatedAt.In(loc).Format("2 Jan 15.04")
	return fmt.Sprintf("Halo Kak %s,\nIni dari Camu Camu. Mau ngingetin pesanan Kakak tanggal %s senilai %s statusnya belum dibayar ya.\n\nDitunggu pembayarannya di kasir. Terima kasih! 🙏",
		o.CustomerName, when, FormatRupiah(o.Total))
}

// ReceiptMessage is the counter receipt with a closing pantun
func ReceiptMessage(o models.Order, pantun string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("*CAMU CAMU* ✨\n_sekali gigit, seribu cerita_\n")
	b.WriteString(messageRule + "\n")
	fmt.Fprintf(&b, "ID: %s\nTanggal: %s\nCustomer: %s\n", o.ID, o.CreatedAt.In(loc).Format("02/01/2006 15.04"), o.CustomerName)
	b.WriteString(messageRule + "\n")
	b.WriteString(itemLines(o.Items, "✅ ") + "\n")
	b.WriteString(messageRule + "\n")
	fmt.Fprintf(&b, "*TOTAL: %s*\n", FormatRupiah(o.Total))
	if o.PaymentMethod == models.PaymentCash {
		var cash, change models.Rupiah
		if o.CashReceived != nil {
			cash = *o.CashReceived
		}
		if o.Change != nil {
			change = *o.Change
		}
		fmt.Fprintf(&b, "Bayar: Tunai (%s)\nKembalian: %s\n", FormatRupiah(cash), FormatRupiah(change))
	} else {
		b.WriteString("Bayar: QRIS\n")
	}
	if pantun != "" {
		fmt.Fprintf(&b, "\n*Bestie, ada pantun buat kamu:*\n%s\n", pantun)
	}
	b.WriteString("\nTerima kasih udah jajan di Camu Camu! Ditunggu kedatangannya lagi ya, slaaay! 💅🔥")
	return b.String()
}

// RandomPantun picks a closing pantun
func RandomPantun() string {
	return Pantuns[rand.Intn(len(Pantuns))]
}

// OwnerOrderMessage is the short owner copy sent to Telegram
func OwnerOrderMessage(o models.Order) string {
	return fmt.Sprintf("🛒 Pesanan online %s\n%s (%s)\n%s\nTotal: %s | %s",
		o.ID, o.CustomerName, o.CustomerPhone, itemLines(o.Items, "• "), FormatRupiah(o.Total), o.PaymentMethod)
}

// WaLink is the wa.me deep link used when the gateway is unavailable
func WaLink(phone, message string) string {
	return "https://wa.me/" + models.NormalizePhone(phone) + "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}
