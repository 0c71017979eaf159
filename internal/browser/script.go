package browser

import (
	"encoding/json"
	"fmt"
)

// resolveJS maps a step chain onto the live DOM. It returns an array of
// elements in document order; every query re-runs it so results are never stale.
const resolveJS = `(function(steps) {
	let els = [];
	for (let i = 0; i < steps.length; i++) {
		const s = steps[i];
		switch (s.op) {
		case 'get':
			els = Array.from(document.querySelectorAll(s.sel));
			break;
		case 'find': {
			const out = [];
			for (const e of els) {
				for (const c of e.querySelectorAll(s.sel)) {
					if (!out.includes(c)) out.push(c);
				}
			}
			els = out;
			break;
		}
		case 'first':
			els = els.slice(0, 1);
			break;
		case 'last':
			els = els.slice(-1);
			break;
		case 'eq': {
			const k = s.n < 0 ? els.length + s.n : s.n;
			els = (k >= 0 && k < els.length) ? [els[k]] : [];
			break;
		}
		case 'contains': {
			const roots = i === 0 ? [document.body] : els;
			const skip = ['SCRIPT', 'STYLE', 'HEAD', 'TITLE', 'NOSCRIPT'];
			let found = null;
			for (const r of roots) {
				if (!r) continue;
				const all = [r, ...r.querySelectorAll('*')].filter(e =>
					!skip.includes(e.tagName) && (e.textContent || '').includes(s.text));
				const deepest = all.filter(e => !all.some(o => o !== e && e.contains(o)));
				if (deepest.length) { found = deepest[0]; break; }
			}
			els = found ? [found] : [];
			break;
		}
		}
	}
	return els;
})`

// snapshotJS serialises an element for Go-side assertions
const snapshotJS = `(function(e) {
	const attrs = {};
	for (const a of e.attributes) {
		if (a.name !== '` + refAttribute + `') attrs[a.name] = a.value;
	}
	const st = window.getComputedStyle(e);
	const r = e.getBoundingClientRect();
	const visible = r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
	return {
		tag: e.tagName.toLowerCase(),
		text: e.textContent || '',
		classes: Array.from(e.classList),
		attrs: attrs,
		visible: visible,
	};
})`

// snapshotScript returns the snapshot of every element the chain resolves to
func snapshotScript(steps []step) (string, error) {
	encoded, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	return fmt.Sprintf(`(() => { const els = %s(%s); return els.map(%s); })()`,
		resolveJS, encoded, snapshotJS), nil
}

// markScript snapshots the chain and, when it resolves to exactly one element,
// tags that element with ref so a CDP selector can address it.
func markScript(steps []step, ref string) (string, error) {
	encoded, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	encodedRef, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("failed to encode ref: %w", err)
	}
	return fmt.Sprintf(`(() => {
	const els = %s(%s);
	for (const old of document.querySelectorAll('[%s]')) old.removeAttribute('%s');
	if (els.length === 1) els[0].setAttribute('%s', %s);
	return els.map(%s);
})()`, resolveJS, encoded, refAttribute, refAttribute, refAttribute, encodedRef, snapshotJS), nil
}

// unmarkScript removes the ref tag once the action has been dispatched
func unmarkScript(ref string) string {
	encodedRef, _ := json.Marshal(ref)
	return fmt.Sprintf(`(() => {
	for (const e of document.querySelectorAll('[%s]')) {
		if (e.getAttribute('%s') === %s) e.removeAttribute('%s');
	}
	return true;
})()`, refAttribute, refAttribute, encodedRef, refAttribute)
}

// propertyScript checks for a property on window
func propertyScript(name string) string {
	encoded, _ := json.Marshal(name)
	return fmt.Sprintf(`(() => %s in window)()`, encoded)
}

// refSelector is the CSS selector for a tagged element
func refSelector(ref string) string {
	return fmt.Sprintf(`[%s="%s"]`, refAttribute, ref)
}
