package transport

import (
	"time"

	"golang.org/x/time/rate"
)

// Loss recovery constants, values drawn from RFC 9002's defaults.
const (
	initialRTT           = 333 * time.Millisecond
	packetThreshold      = 3
	timeThresholdNum     = 9
	timeThresholdDen     = 8
	granularity          = time.Millisecond
	maxPTOBackoff        = 6 // 2^6 = 64x
	minCongestionWindow  = 2 * bufferSize
	initialCongestionWindow = 10 * bufferSize
)

// outgoingPacket records everything needed to react to the eventual ACK or
// loss of one sent packet (spec.md §4.4 "sent-packet records").
type outgoingPacket struct {
	packetNumber uint64
	timeSent     time.Time
	size         uint64
	ackEliciting bool
	inFlight     bool
	frames       []frame
}

func newOutgoingPacket(pn uint64, now time.Time) *outgoingPacket {
	return &outgoingPacket{packetNumber: pn, timeSent: now}
}

func (op *outgoingPacket) addFrame(f frame) {
	op.frames = append(op.frames, f)
	if isFrameAckEliciting(f.frameType()) {
		op.ackEliciting = true
	}
	if f.frameType() != frameTypeAck && f.frameType() != frameTypePadding {
		op.inFlight = true
	} else if f.frameType() == frameTypePadding {
		op.inFlight = true
	}
}

// rttStats is the RTT estimator; lossRecovery keeps a single instance
// shared by all packet-number spaces.
type rttStats struct {
	latest   time.Duration
	smoothed time.Duration
	variance time.Duration
	min      time.Duration
}

func (r *rttStats) update(sample, ackDelay, maxAckDelay time.Duration) {
	if r.min == 0 || sample < r.min {
		r.min = sample
	}
	adjusted := sample
	if adjusted > r.min {
		if ackDelay > maxAckDelay {
			ackDelay = maxAckDelay
		}
		if adjusted-r.min >= ackDelay {
			adjusted -= ackDelay
		}
	}
	r.latest = sample
	if r.smoothed == 0 {
		r.smoothed = sample
		r.variance = sample / 2
		return
	}
	var diff time.Duration
	if r.smoothed > adjusted {
		diff = r.smoothed - adjusted
	} else {
		diff = adjusted - r.smoothed
	}
	r.variance = (3*r.variance + diff) / 4
	r.smoothed = (7*r.smoothed + adjusted) / 8
}

// spaceRecovery is the per-packet-number-space state kept by lossRecovery.
type spaceRecovery struct {
	sent         []*outgoingPacket
	largestAcked int64
	lossTime     time.Time
}

// lossRecovery is C10: RTT estimation, PTO, loss detection, and a single
// congestion window shared across spaces, following a NewReno-shaped
// curve (spec.md §4.4).
type lossRecovery struct {
	rtt rttStats

	spaces [packetSpaceCount]spaceRecovery

	bytesInFlight      uint64
	congestionWindow   uint64
	slowStartThreshold uint64
	recoveryStartTime  time.Time

	ptoCount            int
	lossDetectionTimer  time.Time
	maxAckDelay         time.Duration

	probes       int // number of PTO probe packets still owed
	probeLimiter *rate.Limiter // paces how fast those probes may actually go out

	lost        [packetSpaceCount][]frame
	ackedFrames []frame

	epoch time.Time
}

func (r *lossRecovery) init(now time.Time) {
	r.epoch = now
	r.congestionWindow = initialCongestionWindow
	r.slowStartThreshold = ^uint64(0)
	r.maxAckDelay = 25 * time.Millisecond
	// Two probes may be owed per RFC 9002 §6.2.1; burst 2 lets both leave
	// in the same instant, and any further probe waits for the limiter to
	// refill at one token per granularity.
	r.probeLimiter = rate.NewLimiter(rate.Every(granularity), 2)
	for i := range r.spaces {
		r.spaces[i].largestAcked = -1
	}
}

// allowProbe reports whether a PTO probe packet may be sent now, consuming
// one of the probes owed and one token from the pacing limiter together.
func (r *lossRecovery) allowProbe(now time.Time) bool {
	if r.probes <= 0 {
		return false
	}
	if !r.probeLimiter.AllowN(now, 1) {
		return false
	}
	r.probes--
	return true
}

func (r *lossRecovery) onPacketSent(op *outgoingPacket, space packetSpace) {
	sp := &r.spaces[space]
	sp.sent = append(sp.sent, op)
	if op.inFlight {
		r.bytesInFlight += op.size
	}
	if op.ackEliciting {
		r.setLossDetectionTimer()
	}
}

// onAckReceived processes an ACK frame's range set: it updates RTT (only
// when the ACK is for the largest PN and ack-eliciting), removes acked
// packets from the sent list while invoking each frame's ack callback via
// drainAcked's caller, and re-runs loss detection.
func (r *lossRecovery) onAckReceived(acked rangeSet, ackDelay time.Duration, space packetSpace, now time.Time) {
	sp := &r.spaces[space]
	largest, ok := acked.max()
	if !ok {
		return
	}
	if int64(largest) > sp.largestAcked {
		sp.largestAcked = int64(largest)
	}
	var newlyAcked []*outgoingPacket
	remaining := sp.sent[:0]
	for _, op := range sp.sent {
		if acked.contains(op.packetNumber, op.packetNumber) {
			newlyAcked = append(newlyAcked, op)
			if op.inFlight {
				r.bytesInFlight -= op.size
				r.onPacketAckedCongestion(op, now)
			}
		} else {
			remaining = append(remaining, op)
		}
	}
	sp.sent = remaining
	if len(newlyAcked) == 0 {
		return
	}
	last := newlyAcked[len(newlyAcked)-1]
	if last.packetNumber == largest && last.ackEliciting {
		sample := now.Sub(last.timeSent)
		r.rtt.update(sample, ackDelay, r.maxAckDelay)
	}
	for _, op := range newlyAcked {
		r.ackedFrames = append(r.ackedFrames, op.frames...)
	}
	r.detectLost(space, now)
	r.ptoCount = 0
	r.setLossDetectionTimer()
}

func (r *lossRecovery) onPacketAckedCongestion(op *outgoingPacket, now time.Time) {
	if r.inRecovery(op.timeSent) {
		return
	}
	if r.congestionWindow < r.slowStartThreshold {
		r.congestionWindow += op.size
	} else {
		r.congestionWindow += bufferSize * op.size / r.congestionWindow
	}
}

func (r *lossRecovery) inRecovery(sentTime time.Time) bool {
	return !r.recoveryStartTime.IsZero() && !sentTime.After(r.recoveryStartTime)
}

func (r *lossRecovery) onCongestionEvent(now time.Time) {
	if r.inRecovery(now) {
		return
	}
	r.recoveryStartTime = now
	r.congestionWindow = maxU64v(r.congestionWindow/2, minCongestionWindow)
	r.slowStartThreshold = r.congestionWindow
}

// detectLost finds packets lost by either the packet-number or the
// time threshold (RFC 9002 §6.1) and appends their restitution frames to
// r.lost[space] for the send path to re-mark pending.
func (r *lossRecovery) detectLost(space packetSpace, now time.Time) {
	sp := &r.spaces[space]
	if sp.largestAcked < 0 {
		return
	}
	lossDelay := time.Duration(timeThresholdNum) * maxDuration(r.rtt.latest, r.rtt.smoothed) / timeThresholdDen
	if lossDelay < granularity {
		lossDelay = granularity
	}
	lostTime := now.Add(-lossDelay)
	sp.lossTime = time.Time{}
	remaining := sp.sent[:0]
	var congestionEvent bool
	for _, op := range sp.sent {
		if int64(op.packetNumber) > sp.largestAcked {
			remaining = append(remaining, op)
			continue
		}
		lost := uint64(sp.largestAcked)-op.packetNumber >= packetThreshold || op.timeSent.Before(lostTime) || op.timeSent.Equal(lostTime)
		if lost {
			if op.inFlight {
				r.bytesInFlight -= op.size
				congestionEvent = true
			}
			r.lost[space] = append(r.lost[space], op.frames...)
		} else {
			remaining = append(remaining, op)
			candidate := op.timeSent.Add(lossDelay)
			if sp.lossTime.IsZero() || candidate.Before(sp.lossTime) {
				sp.lossTime = candidate
			}
		}
	}
	sp.sent = remaining
	if congestionEvent {
		r.onCongestionEvent(now)
	}
}

// drainAcked invokes fn for every frame whose packet was just acked.
func (r *lossRecovery) drainAcked(space packetSpace, fn func(frame)) {
	for _, f := range r.ackedFrames {
		fn(f)
	}
	r.ackedFrames = r.ackedFrames[:0]
}

func (r *lossRecovery) drainLost(space packetSpace, fn func(frame)) {
	for _, f := range r.lost[space] {
		fn(f)
	}
	r.lost[space] = r.lost[space][:0]
}

// dropUnackedData discards all sent-packet bookkeeping for a space, e.g.
// when Initial keys are dropped (spec.md §4.5).
func (r *lossRecovery) dropUnackedData(space packetSpace) {
	sp := &r.spaces[space]
	for _, op := range sp.sent {
		if op.inFlight {
			r.bytesInFlight -= op.size
		}
	}
	sp.sent = nil
	sp.lossTime = time.Time{}
	r.lost[space] = nil
}

// probeTimeout returns the current PTO duration (RFC 9002 §6.2.1).
func (r *lossRecovery) probeTimeout() time.Duration {
	rtt := r.rtt.smoothed
	if rtt == 0 {
		rtt = initialRTT
	}
	pto := rtt + maxDuration(4*r.rtt.variance, granularity) + r.maxAckDelay
	backoff := r.ptoCount
	if backoff > maxPTOBackoff {
		backoff = maxPTOBackoff
	}
	return pto << uint(backoff)
}

func (r *lossRecovery) setLossDetectionTimer() {
	earliestLoss := time.Time{}
	for i := range r.spaces {
		if !r.spaces[i].lossTime.IsZero() {
			if earliestLoss.IsZero() || r.spaces[i].lossTime.Before(earliestLoss) {
				earliestLoss = r.spaces[i].lossTime
			}
		}
	}
	if !earliestLoss.IsZero() {
		r.lossDetectionTimer = earliestLoss
		return
	}
	hasInFlight := r.bytesInFlight > 0
	if !hasInFlight {
		r.lossDetectionTimer = time.Time{}
		return
	}
	r.lossDetectionTimer = time.Now().Add(r.probeTimeout())
}

// onLossDetectionTimeout fires either a loss-time-based detection pass or
// schedules PTO probes (spec.md §4.5 send path step 1).
func (r *lossRecovery) onLossDetectionTimeout(now time.Time) {
	if r.lossDetectionTimer.IsZero() || now.Before(r.lossDetectionTimer) {
		return
	}
	anyLossTime := false
	for i := range r.spaces {
		if !r.spaces[i].lossTime.IsZero() {
			anyLossTime = true
			r.detectLost(packetSpace(i), now)
		}
	}
	if !anyLossTime {
		r.ptoCount++
		r.probes = 2
	}
	r.setLossDetectionTimer()
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func maxU64v(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
