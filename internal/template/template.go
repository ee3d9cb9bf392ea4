package template

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Logical template ids. Every store is seeded with an editable copy of
// each; Resolve falls back to the built-in text when one is missing.
const (
	IDInitialGreeting      = "initial_greeting"
	IDStartTimerConfirm    = "start_timer_confirmation"
	IDMachineBusy          = "machine_busy"
	IDMachineInactive      = "machine_inactive"
	IDMachineNotFound      = "machine_not_found"
	IDNonTextMessage       = "non_text_message"
	IDContactMessage       = "contact_message"
	IDGenericError         = "generic_error"
	IDTimerCompletedNotify = "timer_completed_notification"
)

var defaults = map[string]string{
	IDInitialGreeting:      "สวัสดีค่ะ ร้านซัก-อบ ยินดีต้อนรับ 🙏\n\nกรุณาเลือกบริการที่ต้องการค่ะ",
	IDStartTimerConfirm:    "รับทราบค่ะ! ✅\nเริ่มจับเวลา {duration} นาทีสำหรับ {display_name} แล้วค่ะ",
	IDMachineBusy:          "ขออภัยค่ะ 🙏\nเครื่อง {display_name} กำลังใช้งานอยู่ค่ะ",
	IDMachineInactive:      "ขออภัยค่ะ 🙏\nเครื่อง {display_name} กำลังปิดใช้งานอยู่ค่ะ",
	IDMachineNotFound:      "ขออภัยค่ะ ไม่พบหมายเลขเครื่องที่คุณระบุ กรุณาพิมพ์เฉพาะตัวเลขของเครื่องที่เปิดใช้งานค่ะ",
	IDNonTextMessage:       "ขออภัยค่ะ บอทเข้าใจเฉพาะข้อความตัวอักษรเท่านั้น",
	IDContactMessage:       "ขออภัยค่ะ บอทสามารถตั้งเวลาได้จากตัวเลขของเครื่องเท่านั้นค่ะ 🙏\n\nหากต้องการติดต่อเจ้าหน้าที่โดยตรง กรุณาติดต่อที่หน้าเคาน์เตอร์ได้เลยค่ะ",
	IDGenericError:         "ขออภัยค่ะ เกิดข้อผิดพลาดทางเทคนิค กรุณาลองใหม่อีกครั้ง",
	IDTimerCompletedNotify: "🔔 แจ้งเตือน! ✅\n{display_name} ของคุณเสร็จเรียบร้อยแล้วค่ะ",
}

// Default returns the built-in text for a logical template id, or the
// empty string for an unknown id.
func Default(templateID string) string {
	return defaults[templateID]
}

// DefaultSet returns a copy of every built-in template, used to seed a
// new store at onboarding.
func DefaultSet() map[string]string {
	set := make(map[string]string, len(defaults))
	for id, text := range defaults {
		set[id] = text
	}
	return set
}

// Render substitutes {placeholder} tokens in a template text.
func Render(text string, vars map[string]string) string {
	for k, v := range vars {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}

// Source provides the persisted template set of a store.
type Source interface {
	GetTemplates(ctx context.Context, storeID string) (map[string]string, error)
}

// Resolver serves per-store template sets through a bounded TTL cache.
// Templates are admin-edited rarely and read on every webhook event, so
// the cache keeps the hot path off the database; Invalidate is called on
// every admin edit so stale text never outlives the TTL.
type Resolver struct {
	src   Source
	cache *cache.Cache
	ttl   time.Duration
}

// NewResolver creates a template resolver with the given cache TTL.
func NewResolver(src Source, ttl time.Duration) *Resolver {
	return &Resolver{
		src:   src,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Resolve returns the text for a store's template, falling back to the
// built-in default when the store has no copy or the fetch fails.
func (r *Resolver) Resolve(ctx context.Context, storeID, templateID string) string {
	set := r.set(ctx, storeID)
	if text, ok := set[templateID]; ok && text != "" {
		return text
	}
	return defaults[templateID]
}

// Invalidate drops a store's cached template set.
func (r *Resolver) Invalidate(storeID string) {
	r.cache.Delete(storeID)
}

func (r *Resolver) set(ctx context.Context, storeID string) map[string]string {
	if cached, found := r.cache.Get(storeID); found {
		return cached.(map[string]string)
	}

	set, err := r.src.GetTemplates(ctx, storeID)
	if err != nil {
		log.Printf("Error fetching message templates for store %s: %v. Using default fallbacks.", storeID, err)
		return nil
	}
	r.cache.Set(storeID, set, r.ttl)
	return set
}
