package spectator

// indexHTML draws the frame stream on a canvas. Each WebSocket message is
// one tick: newline-separated ship, projectile and star objects.
const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>SpaceWars spectator</title>
<style>
body { background: #000; color: #ccc; font: 14px monospace; margin: 0; }
canvas { display: block; margin: 0 auto; background: #050510; }
#scores { position: fixed; top: 8px; left: 8px; white-space: pre; }
</style>
</head>
<body>
<div id="scores"></div>
<canvas id="view" width="750" height="750"></canvas>
<script>
const canvas = document.getElementById("view");
const ctx = canvas.getContext("2d");
const scores = document.getElementById("scores");
const size = canvas.width;

function draw(frame) {
  ctx.clearRect(0, 0, size, size);
  const ships = [];
  for (const line of frame.split("\n")) {
    if (!line) continue;
    let o;
    try { o = JSON.parse(line); } catch (e) { continue; }
    const x = o.loc.x + size / 2, y = o.loc.y + size / 2;
    if (o.star !== undefined) {
      ctx.fillStyle = "#ffcc33";
      ctx.beginPath(); ctx.arc(x, y, 35, 0, 2 * Math.PI); ctx.fill();
    } else if (o.proj !== undefined) {
      if (!o.alive) continue;
      ctx.fillStyle = "#ff5555";
      ctx.fillRect(x - 2, y - 2, 4, 4);
    } else if (o.ship !== undefined) {
      ships.push(o);
      if (o.hp <= 0) continue;
      ctx.save();
      ctx.translate(x, y);
      ctx.rotate(Math.atan2(o.dir.x, -o.dir.y));
      ctx.strokeStyle = o.thrust ? "#66ccff" : "#ffffff";
      ctx.beginPath(); ctx.moveTo(0, -12); ctx.lineTo(8, 10); ctx.lineTo(-8, 10); ctx.closePath(); ctx.stroke();
      ctx.restore();
    }
  }
  ships.sort((a, b) => b.score - a.score || a.ship - b.ship);
  scores.textContent = ships.map(s => s.name + "  " + s.score + (s.hp > 0 ? "" : "  (dead)")).join("\n");
}

const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = ev => draw(ev.data);
</script>
</body>
</html>
`
