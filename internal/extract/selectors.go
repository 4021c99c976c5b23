package extract

// Selector table for the third-party chat page. These class names drift with
// upstream releases; keeping them in one place is the only defense we have.
const (
	selThread   = ".b-chats__scrollbar"
	selTimeline = ".b-chat__messages-timeline"
	selSection  = ".b-chat__message-group"
	selBubble   = ".b-chat__message"

	// Payment extraction iterates the id marker rather than the class so it
	// also sees bubbles rendered outside a message group.
	selChatMarker = `[id^="message_"]`

	classFromMe     = "m-from-me"
	classTimeHidden = "m-time-hidden"

	selMessageText  = ".b-chat__message__text"
	selMessageTime  = ".b-chat__message__time"
	selTip          = ".b-chat__message__tip"
	selPurchase     = ".b-chat__message__purchase"
	selPaymentState = ".b-chat__message__payment-state"
	selQuote        = ".b-chat__message__quote"
	selQuoteLayer   = ".m-bg-layer"

	selMedia         = ".b-chat__message__media"
	selMediaItem     = ".b-chat__message__media-item"
	selMediaGif      = ".m-gif"
	selAudio         = ".b-chat__message__audio"
	selAudioDuration = ".audio-duration"

	selReadIcon = `use[href*="done-all"], svg[data-icon-name="done-all"]`

	selPartnerName    = ".b-chat__header .g-user-name"
	selPartnerNameAlt = ".b-chat__item-header .g-user-name"
	selCustomName     = ".b-chat__header .g-user-realname__text"
	selCustomNameAlt  = ".b-chat__header [data-custom-name]"
	selPartnerLink    = `.b-chat__header a[href^="/u"]`
	selOwnLink        = `.b-header__user a[href^="/u"]`
	selOwnName        = ".b-header__user .g-user-name"

	selVaultActive = ".b-photos__category.m-active"
	selVaultName   = ".b-photos__category__name"
	selVaultCount  = ".b-photos__category__count"

	selSubRow      = ".b-users__item"
	selSubName     = ".g-user-name"
	selSubLink     = `a[href^="/u"]`
	selSubPrice    = ".b-users__item__price"
	selSubDuration = ".b-users__item__duration"
)
