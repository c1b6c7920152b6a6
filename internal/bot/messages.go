package bot

// User-facing message templates. The display time layout matches the
// storage layout minus seconds.
const displayTime = "02.01.2006 15:04"

const welcomeText = "📌 *Welcome.*\n" +
	"_You have entered a system that works._\n\n" +
	"🔸 No noise\n" +
	"🔸 No motivational fluff\n" +
	"🔸 Only the tools and the concrete steps\n\n" +
	"*Pick where to start. The rest will follow.*"

const subscribeText = "*A subscription is not access. It is picking a side.* 🔓\n\n" +
	"Either you stay outside guessing, or you step in. Inside:\n\n" +
	"⚔️ _Ready-made playbooks nobody shows the crowd_\n\n" +
	"🧠 _Everything structured; you do not guess, you execute_\n\n" +
	"📈 _Growth, results and control, independent of mood and panic_\n\n" +
	"💡 *The terms are simple:*\n" +
	"▪️ Day — 90₽. For those who do not believe yet but want to check.\n" +
	"▪️ Week — 440₽. For those ready to take what is theirs.\n" +
	"▪️ Month — 1620₽. For those going all the way.\n\n" +
	"❌ *Staying outside is also a choice. Just do not say you did not know.*"

const (
	expiredNoticeText  = "❌ Your subscription has expired and you have been removed from the channel. Renew to restore access."
	cancelledText      = "❌ Your subscription was cancelled by an administrator."
	paymentCancelText  = "Payment cancelled. Send /start to begin again."
	extendCancelText   = "❌ Subscription renewal cancelled."
	timeoutText        = "❌ Payment wait time elapsed. Please try paying again."
	notAdminText       = "⛔ You do not have access to this function."
	unknownTierText    = "❌ Unknown subscription tier"
	paymentFailText    = "Something went wrong while creating the payment form. Try again later."
	successPhotoPath   = "imgs/success.png"
	welcomePhotoPath   = "imgs/welcome.png"
	subscribePhotoPath = "imgs/subscribe.png"
)
