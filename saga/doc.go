// Package saga provides best-effort compensation (rollback) for completed
// operations when a surrounding workflow must be undone.
//
// Compensation is not automatic rollback of the downstream system. It is an
// explicitly coded inverse action supplied by each adapter ("turn off the
// typing indicator that was turned on", "end the live session that was
// started"). Operations with no sensible inverse register NoopCompensator.
//
// Compensation failures never propagate as errors: the executor records the
// outcome, logs it, and returns false, because failing the calling workflow
// a second time is rarely useful. Orchestrators inspect the recorded
// outcomes to decide whether to escalate.
package saga
